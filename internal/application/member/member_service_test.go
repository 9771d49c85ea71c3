package member

import (
	"context"
	"testing"
	"time"

	billingapp "github.com/academy/backend/internal/application/billing"
	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/domain/member"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/cache"
	"github.com/academy/backend/internal/infrastructure/persistence"
	"github.com/academy/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type memberTestEnv struct {
	svc          *MemberService
	reconciler   *billingapp.PaymentReconcileService
	memberRepo   member.MemberRepository
	scheduleRepo member.FeeScheduleRepository
	paymentRepo  billing.PaymentRepository
	coverageRepo billing.CoverageRecordRepository
}

func newMemberTestEnv(t *testing.T) *memberTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MemberModel{},
		&models.FeeScheduleModel{},
		&models.PaymentModel{},
		&models.CoverageRecordModel{},
	))

	c := cache.NewInMemoryDueStatusCache()
	t.Cleanup(func() { _ = c.Close() })

	env := &memberTestEnv{
		memberRepo:   persistence.NewGormMemberRepository(db),
		scheduleRepo: persistence.NewGormFeeScheduleRepository(db),
		paymentRepo:  persistence.NewGormPaymentRepository(db),
		coverageRepo: persistence.NewGormCoverageRecordRepository(db),
	}
	tx := persistence.NewGormTransactionManager(db)
	logger := zap.NewNop()

	env.reconciler = billingapp.NewPaymentReconcileService(
		env.paymentRepo, env.coverageRepo, env.memberRepo, env.scheduleRepo, tx, c, logger)
	env.svc = NewMemberService(
		env.memberRepo, env.scheduleRepo, env.coverageRepo, env.reconciler, tx, c, logger)

	return env
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }

func (env *memberTestEnv) create(t *testing.T, registered time.Time) *MemberResponse {
	t.Helper()
	resp, err := env.svc.Create(context.Background(), CreateMemberRequest{
		FullName:         "Emre Aydin",
		Phone:            "555-0110",
		RegistrationDate: registered,
		Status:           "ACTIVE",
	})
	require.NoError(t, err)
	return resp
}

func TestMemberService_Create(t *testing.T) {
	env := newMemberTestEnv(t)
	ctx := context.Background()

	t.Run("derives the billing day from the registration date", func(t *testing.T) {
		resp := env.create(t, date(2026, 3, 31))
		assert.Equal(t, 31, resp.BillingDay)
		assert.Equal(t, "ACTIVE", resp.Status)

		found, err := env.svc.Get(ctx, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, "Emre Aydin", found.FullName)
	})

	t.Run("defaults to trial status", func(t *testing.T) {
		resp, err := env.svc.Create(ctx, CreateMemberRequest{
			FullName:         "Lea Brun",
			RegistrationDate: date(2026, 4, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, "TRIAL", resp.Status)
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		_, err := env.svc.Create(ctx, CreateMemberRequest{
			FullName:         "",
			RegistrationDate: date(2026, 4, 1),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_NAME", domainErr.Code)
	})
}

func TestMemberService_Update(t *testing.T) {
	env := newMemberTestEnv(t)
	ctx := context.Background()

	created := env.create(t, date(2026, 3, 15))

	resp, err := env.svc.Update(ctx, created.ID, UpdateMemberRequest{
		Phone:  strPtr("555-0199"),
		Remark: strPtr("sibling of Deniz"),
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0199", resp.Phone)
	assert.Equal(t, "sibling of Deniz", resp.Remark)
	assert.Equal(t, "Emre Aydin", resp.FullName, "omitted fields stay untouched")
	assert.True(t, created.RegistrationDate.Equal(resp.RegistrationDate))
}

func TestMemberService_UpdateStatus(t *testing.T) {
	env := newMemberTestEnv(t)
	ctx := context.Background()

	created := env.create(t, date(2026, 3, 15))

	resp, err := env.svc.UpdateStatus(ctx, created.ID, UpdateMemberStatusRequest{
		Status: "FROZEN",
		Reason: "requested a pause",
	})
	require.NoError(t, err)
	assert.Equal(t, "FROZEN", resp.Status)

	resp, err = env.svc.UpdateStatus(ctx, created.ID, UpdateMemberStatusRequest{Status: "INACTIVE"})
	require.NoError(t, err)
	assert.Equal(t, "INACTIVE", resp.Status)

	// Leaving the academy is terminal
	_, err = env.svc.UpdateStatus(ctx, created.ID, UpdateMemberStatusRequest{Status: "ACTIVE"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestMemberService_FeeSchedule(t *testing.T) {
	env := newMemberTestEnv(t)
	ctx := context.Background()

	created := env.create(t, date(2026, 3, 15))

	t.Run("missing schedule is reported", func(t *testing.T) {
		_, err := env.svc.GetFeeSchedule(ctx, created.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NO_FEE_SCHEDULE", domainErr.Code)
	})

	t.Run("set then update replaces the fees", func(t *testing.T) {
		resp, err := env.svc.SetFeeSchedule(ctx, created.ID, SetFeeScheduleRequest{
			MonthlyFee:   decimal.NewFromInt(100),
			TransportFee: decimal.NewFromInt(30),
		})
		require.NoError(t, err)
		assert.True(t, resp.MonthlyFee.Equal(decimal.NewFromInt(100)))

		resp, err = env.svc.SetFeeSchedule(ctx, created.ID, SetFeeScheduleRequest{
			MonthlyFee:   decimal.NewFromInt(120),
			TransportFee: decimal.Zero,
		})
		require.NoError(t, err)
		assert.True(t, resp.MonthlyFee.Equal(decimal.NewFromInt(120)))
		assert.True(t, resp.TransportFee.IsZero())

		stored, err := env.svc.GetFeeSchedule(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, stored.MonthlyFee.Equal(decimal.NewFromInt(120)))
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := env.svc.SetFeeSchedule(ctx, uuid.New(), SetFeeScheduleRequest{
			MonthlyFee: decimal.NewFromInt(100),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "MEMBER_NOT_FOUND", domainErr.Code)
	})
}

func TestMemberService_CorrectRegistrationDateRebuildsCoverage(t *testing.T) {
	env := newMemberTestEnv(t)
	ctx := context.Background()

	created := env.create(t, date(2026, 3, 15))
	_, err := env.svc.SetFeeSchedule(ctx, created.ID, SetFeeScheduleRequest{
		MonthlyFee: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = env.reconciler.RecordPayment(ctx, billingapp.RecordPaymentRequest{
		MemberID:      created.ID,
		Amount:        decimal.NewFromInt(200),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 3, 15),
		CoverageStart: ptr(date(2026, 3, 15)),
		CoverageEnd:   ptr(date(2026, 4, 30)),
	})
	require.NoError(t, err)

	// Simulate a ledger that drifted out of sync before the correction
	require.NoError(t, env.coverageRepo.DeleteByMember(ctx, created.ID))

	resp, err := env.svc.CorrectRegistrationDate(ctx, created.ID, CorrectRegistrationDateRequest{
		RegistrationDate: date(2026, 3, 20),
	})
	require.NoError(t, err)
	assert.Equal(t, 20, resp.BillingDay)

	records, err := env.coverageRepo.FindByMember(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, records, 2, "payments were replayed into a fresh ledger")
	for _, r := range records {
		assert.True(t, r.AmountPaid.Equal(decimal.NewFromInt(100)))
	}
}

func TestMemberService_DeleteRemovesBillingState(t *testing.T) {
	env := newMemberTestEnv(t)
	ctx := context.Background()

	created := env.create(t, date(2026, 3, 15))
	_, err := env.svc.SetFeeSchedule(ctx, created.ID, SetFeeScheduleRequest{
		MonthlyFee: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = env.reconciler.RecordPayment(ctx, billingapp.RecordPaymentRequest{
		MemberID:      created.ID,
		Amount:        decimal.NewFromInt(100),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 3, 15),
		CoverageStart: ptr(date(2026, 3, 15)),
		CoverageEnd:   ptr(date(2026, 3, 31)),
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, created.ID))

	_, err = env.svc.Get(ctx, created.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "MEMBER_NOT_FOUND", domainErr.Code)

	schedule, err := env.scheduleRepo.FindByMemberID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, schedule)

	records, err := env.coverageRepo.FindByMember(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Payments are financial history and survive the member
	payments, err := env.paymentRepo.FindCoverageBearing(ctx, &created.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestMemberService_List(t *testing.T) {
	env := newMemberTestEnv(t)
	ctx := context.Background()

	names := []struct {
		name   string
		status string
	}{
		{"Ada Krause", "ACTIVE"},
		{"Ben Krause", "TRIAL"},
		{"Cem Yilmaz", "ACTIVE"},
	}
	for _, n := range names {
		_, err := env.svc.Create(ctx, CreateMemberRequest{
			FullName:         n.name,
			RegistrationDate: date(2026, 2, 1),
			Status:           n.status,
		})
		require.NoError(t, err)
	}

	t.Run("filters by status", func(t *testing.T) {
		result, err := env.svc.List(ctx, ListMembersQuery{Status: "ACTIVE", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
	})

	t.Run("searches by name", func(t *testing.T) {
		result, err := env.svc.List(ctx, ListMembersQuery{Search: "Krause", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
	})

	t.Run("paginates", func(t *testing.T) {
		result, err := env.svc.List(ctx, ListMembersQuery{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Len(t, result.Items, 2)
		assert.Equal(t, int64(3), result.Total)
		assert.Equal(t, 2, result.TotalPages)
	})
}
