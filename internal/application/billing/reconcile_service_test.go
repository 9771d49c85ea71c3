package billing

import (
	"context"
	"testing"
	"time"

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

// billingTestEnv wires the billing services against an in-memory database
// with the real repositories, so service tests exercise the same SQL paths
// as production.
type billingTestEnv struct {
	db             *gorm.DB
	memberRepo     member.MemberRepository
	scheduleRepo   member.FeeScheduleRepository
	paymentRepo    billing.PaymentRepository
	coverageRepo   billing.CoverageRecordRepository
	escalationRepo billing.EscalationRepository
	tx             shared.TransactionManager
	cache          *cache.InMemoryDueStatusCache
	reconciler     *PaymentReconcileService
	dueStatus      *DueStatusService
}

func newBillingTestEnv(t *testing.T) *billingTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MemberModel{},
		&models.FeeScheduleModel{},
		&models.PaymentModel{},
		&models.CoverageRecordModel{},
		&models.EscalationModel{},
	))

	c := cache.NewInMemoryDueStatusCache()
	t.Cleanup(func() { _ = c.Close() })

	env := &billingTestEnv{
		db:             db,
		memberRepo:     persistence.NewGormMemberRepository(db),
		scheduleRepo:   persistence.NewGormFeeScheduleRepository(db),
		paymentRepo:    persistence.NewGormPaymentRepository(db),
		coverageRepo:   persistence.NewGormCoverageRecordRepository(db),
		escalationRepo: persistence.NewGormEscalationRepository(db),
		tx:             persistence.NewGormTransactionManager(db),
		cache:          c,
	}
	logger := zap.NewNop()

	env.reconciler = NewPaymentReconcileService(
		env.paymentRepo, env.coverageRepo, env.memberRepo, env.scheduleRepo, env.tx, c, logger)
	env.dueStatus = NewDueStatusService(
		env.memberRepo, env.scheduleRepo, env.coverageRepo, c, time.Minute, logger)

	return env
}

func (env *billingTestEnv) seedMember(t *testing.T, registered time.Time) *member.Member {
	t.Helper()
	m, err := member.NewMember("Jonas Weber", "555-0101", registered, member.StatusActive)
	require.NoError(t, err)
	require.NoError(t, env.memberRepo.Save(context.Background(), m))
	return m
}

func (env *billingTestEnv) seedSchedule(t *testing.T, memberID uuid.UUID, monthly, transport decimal.Decimal) {
	t.Helper()
	schedule, err := member.NewFeeSchedule(memberID, monthly, transport)
	require.NoError(t, err)
	require.NoError(t, env.scheduleRepo.Save(context.Background(), schedule))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func (env *billingTestEnv) ledgerFor(t *testing.T, memberID uuid.UUID) map[string]*billing.CoverageRecord {
	t.Helper()
	records, err := env.coverageRepo.FindByMember(context.Background(), memberID)
	require.NoError(t, err)
	byKey := make(map[string]*billing.CoverageRecord, len(records))
	for i := range records {
		r := records[i]
		byKey[string(r.Category)+"|"+string(r.YearMonth)] = &r
	}
	return byKey
}

func TestRecordPayment_ProratesAcrossSpannedMonths(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 10))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(100), decimal.Zero)

	resp, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:      m.ID,
		Amount:        decimal.NewFromInt(300),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 6, 10),
		CoverageStart: ptr(date(2026, 6, 10)),
		CoverageEnd:   ptr(date(2026, 8, 20)),
		PayerName:     "Weber",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	ledger := env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 3)
	for _, ym := range []string{"2026-06", "2026-07", "2026-08"} {
		record := ledger["MONTHLY|"+ym]
		require.NotNil(t, record, "missing ledger row for %s", ym)
		assert.True(t, record.AmountPaid.Equal(decimal.NewFromInt(100)), "share for %s: %s", ym, record.AmountPaid)
		assert.True(t, record.AmountDue.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, billing.CoverageStatePaid, record.State)
		assert.Equal(t, resp.ID, record.LastPaymentID)
	}
}

func TestRecordPayment_AnchorToDayBeforeNextAnchorIsOneMonth(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2025, 10, 12))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(1000), decimal.Zero)

	// A period running from the billing anchor to the day before the next
	// anchor buys exactly one month, not two.
	_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:      m.ID,
		Amount:        decimal.NewFromInt(1000),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2025, 10, 12),
		CoverageStart: ptr(date(2025, 10, 12)),
		CoverageEnd:   ptr(date(2025, 11, 11)),
	})
	require.NoError(t, err)

	ledger := env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 1)
	row := ledger["MONTHLY|2025-10"]
	require.NotNil(t, row)
	assert.True(t, row.AmountPaid.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, billing.CoverageStatePaid, row.State)
	assert.Nil(t, ledger["MONTHLY|2025-11"])
}

func TestRecordPayment_SharesSumBackToAmount(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 1, 5))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(100), decimal.Zero)

	// 100 across three months does not divide evenly; the last share absorbs
	// the remainder.
	_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:      m.ID,
		Amount:        decimal.NewFromInt(100),
		Category:      "MONTHLY",
		Method:        "TRANSFER",
		PaymentDate:   date(2026, 1, 5),
		CoverageStart: ptr(date(2026, 1, 5)),
		CoverageEnd:   ptr(date(2026, 3, 5)),
	})
	require.NoError(t, err)

	ledger := env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 3)
	total := decimal.Zero
	for _, record := range ledger {
		total = total.Add(record.AmountPaid)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(100)), "shares sum to %s", total)
	assert.True(t, ledger["MONTHLY|2026-01"].AmountPaid.Equal(decimal.RequireFromString("33.3333")))
	assert.True(t, ledger["MONTHLY|2026-03"].AmountPaid.Equal(decimal.RequireFromString("33.3334")))
}

func TestRecordPayment_MergesIntoExistingRecord(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 1))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(100), decimal.Zero)

	record := func(amount int64) *PaymentResponse {
		resp, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
			MemberID:      m.ID,
			Amount:        decimal.NewFromInt(amount),
			Category:      "MONTHLY",
			Method:        "CASH",
			PaymentDate:   date(2026, 6, 1),
			CoverageStart: ptr(date(2026, 6, 1)),
			CoverageEnd:   ptr(date(2026, 6, 30)),
		})
		require.NoError(t, err)
		return resp
	}

	record(50)
	ledger := env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 1)
	assert.Equal(t, billing.CoverageStatePartial, ledger["MONTHLY|2026-06"].State)

	second := record(50)
	ledger = env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 1)
	row := ledger["MONTHLY|2026-06"]
	assert.True(t, row.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, billing.CoverageStatePaid, row.State)
	assert.Equal(t, second.ID, row.LastPaymentID, "record is re-tagged with the last contributing payment")
}

func TestRecordPayment_OneOffCategoriesSkipLedger(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 1))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(100), decimal.Zero)

	resp, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:    m.ID,
		Amount:      decimal.NewFromInt(45),
		Category:    "UNIFORM",
		Method:      "CARD",
		PaymentDate: date(2026, 6, 3),
	})
	require.NoError(t, err)

	ledger := env.ledgerFor(t, m.ID)
	assert.Empty(t, ledger)

	stored, err := env.reconciler.GetPayment(ctx, resp.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CoverageStart)
	assert.Nil(t, stored.CoverageEnd)
}

func TestRecordPayment_Validation(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 1))

	t.Run("unknown member", func(t *testing.T) {
		_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
			MemberID:      uuid.New(),
			Amount:        decimal.NewFromInt(100),
			Category:      "MONTHLY",
			Method:        "CASH",
			PaymentDate:   date(2026, 6, 1),
			CoverageStart: ptr(date(2026, 6, 1)),
			CoverageEnd:   ptr(date(2026, 6, 30)),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "MEMBER_NOT_FOUND", domainErr.Code)
	})

	t.Run("half-open period", func(t *testing.T) {
		_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
			MemberID:      m.ID,
			Amount:        decimal.NewFromInt(100),
			Category:      "MONTHLY",
			Method:        "CASH",
			PaymentDate:   date(2026, 6, 1),
			CoverageStart: ptr(date(2026, 6, 1)),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PERIOD", domainErr.Code)
	})

	t.Run("coverage category without period", func(t *testing.T) {
		_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
			MemberID:    m.ID,
			Amount:      decimal.NewFromInt(100),
			Category:    "MONTHLY",
			Method:      "CASH",
			PaymentDate: date(2026, 6, 1),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "MISSING_PERIOD", domainErr.Code)
	})

	t.Run("one-off category with period", func(t *testing.T) {
		_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
			MemberID:      m.ID,
			Amount:        decimal.NewFromInt(45),
			Category:      "UNIFORM",
			Method:        "CASH",
			PaymentDate:   date(2026, 6, 1),
			CoverageStart: ptr(date(2026, 6, 1)),
			CoverageEnd:   ptr(date(2026, 6, 30)),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNEXPECTED_PERIOD", domainErr.Code)

		// Nothing was stored when validation failed
		list, listErr := env.reconciler.ListPayments(ctx, ListPaymentsQuery{MemberID: &m.ID, Page: 1, PageSize: 10})
		require.NoError(t, listErr)
		assert.Equal(t, int64(0), list.Total)
	})
}

func TestUpdatePayment_TearsDownOnlyTaggedRows(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 1))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(100), decimal.Zero)

	june := func(amount int64) *PaymentResponse {
		resp, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
			MemberID:      m.ID,
			Amount:        decimal.NewFromInt(amount),
			Category:      "MONTHLY",
			Method:        "CASH",
			PaymentDate:   date(2026, 6, 1),
			CoverageStart: ptr(date(2026, 6, 1)),
			CoverageEnd:   ptr(date(2026, 6, 30)),
		})
		require.NoError(t, err)
		return resp
	}

	first := june(50)
	june(50) // last writer: the June row is now tagged with the second payment

	// Moving the first payment to July must not tear down the June row,
	// because the teardown is tag-scoped. The June total keeps the first
	// payment's contribution until a rebuild.
	_, err := env.reconciler.UpdatePayment(ctx, first.ID, UpdatePaymentRequest{
		Amount:        decimal.NewFromInt(50),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 6, 1),
		CoverageStart: ptr(date(2026, 7, 1)),
		CoverageEnd:   ptr(date(2026, 7, 31)),
	})
	require.NoError(t, err)

	ledger := env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 2)
	assert.True(t, ledger["MONTHLY|2026-06"].AmountPaid.Equal(decimal.NewFromInt(100)), "untagged June row keeps the drifted total")
	assert.True(t, ledger["MONTHLY|2026-07"].AmountPaid.Equal(decimal.NewFromInt(50)))

	// The full rebuild is the authoritative path and removes the drift.
	result, err := env.reconciler.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PaymentsReplayed)

	ledger = env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 2)
	assert.True(t, ledger["MONTHLY|2026-06"].AmountPaid.Equal(decimal.NewFromInt(50)))
	assert.True(t, ledger["MONTHLY|2026-07"].AmountPaid.Equal(decimal.NewFromInt(50)))
}

func TestUpdatePayment_ReplacesOwnCoverage(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 1))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(100), decimal.Zero)

	resp, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:      m.ID,
		Amount:        decimal.NewFromInt(200),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 6, 1),
		CoverageStart: ptr(date(2026, 6, 1)),
		CoverageEnd:   ptr(date(2026, 7, 31)),
	})
	require.NoError(t, err)

	_, err = env.reconciler.UpdatePayment(ctx, resp.ID, UpdatePaymentRequest{
		Amount:        decimal.NewFromInt(100),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 6, 1),
		CoverageStart: ptr(date(2026, 8, 1)),
		CoverageEnd:   ptr(date(2026, 8, 31)),
	})
	require.NoError(t, err)

	ledger := env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 1)
	row := ledger["MONTHLY|2026-08"]
	require.NotNil(t, row)
	assert.True(t, row.AmountPaid.Equal(decimal.NewFromInt(100)))
}

func TestDeletePayment_RemovesTaggedCoverage(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 1))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(100), decimal.Zero)

	resp, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:      m.ID,
		Amount:        decimal.NewFromInt(200),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 6, 1),
		CoverageStart: ptr(date(2026, 6, 1)),
		CoverageEnd:   ptr(date(2026, 7, 31)),
	})
	require.NoError(t, err)
	require.Len(t, env.ledgerFor(t, m.ID), 2)

	require.NoError(t, env.reconciler.DeletePayment(ctx, resp.ID))

	assert.Empty(t, env.ledgerFor(t, m.ID))
	_, err = env.reconciler.GetPayment(ctx, resp.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PAYMENT_NOT_FOUND", domainErr.Code)
}

func TestRebuildAll_IsIdempotent(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 1))
	env.seedSchedule(t, m.ID, decimal.NewFromInt(100), decimal.NewFromInt(30))

	_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:      m.ID,
		Amount:        decimal.NewFromInt(200),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 5, 1),
		CoverageStart: ptr(date(2026, 5, 1)),
		CoverageEnd:   ptr(date(2026, 6, 30)),
	})
	require.NoError(t, err)
	_, err = env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:      m.ID,
		Amount:        decimal.NewFromInt(30),
		Category:      "TRANSPORT",
		Method:        "TRANSFER",
		PaymentDate:   date(2026, 5, 1),
		CoverageStart: ptr(date(2026, 5, 1)),
		CoverageEnd:   ptr(date(2026, 5, 31)),
	})
	require.NoError(t, err)
	_, err = env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:    m.ID,
		Amount:      decimal.NewFromInt(25),
		Category:    "SIGNUP",
		Method:      "CASH",
		PaymentDate: date(2026, 5, 1),
	})
	require.NoError(t, err)

	before := env.ledgerFor(t, m.ID)
	require.Len(t, before, 3)

	for run := 0; run < 2; run++ {
		result, err := env.reconciler.RebuildAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, result.PaymentsReplayed, "one-off payments are not replayed")
		assert.Equal(t, 3, result.RecordsWritten)

		after := env.ledgerFor(t, m.ID)
		require.Len(t, after, 3)
		for key, want := range before {
			got := after[key]
			require.NotNil(t, got, "missing %s after rebuild", key)
			assert.True(t, got.AmountPaid.Equal(want.AmountPaid), "%s amount_paid", key)
			assert.True(t, got.AmountDue.Equal(want.AmountDue), "%s amount_due", key)
			assert.Equal(t, want.State, got.State, "%s state", key)
		}
	}
}

func TestRebuildMember_ScopesToOneMember(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	a := env.seedMember(t, date(2026, 5, 1))
	env.seedSchedule(t, a.ID, decimal.NewFromInt(100), decimal.Zero)
	b, err := member.NewMember("Mira Keller", "555-0102", date(2026, 4, 1), member.StatusActive)
	require.NoError(t, err)
	require.NoError(t, env.memberRepo.Save(ctx, b))
	env.seedSchedule(t, b.ID, decimal.NewFromInt(80), decimal.Zero)

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
			MemberID:      id,
			Amount:        decimal.NewFromInt(100),
			Category:      "MONTHLY",
			Method:        "CASH",
			PaymentDate:   date(2026, 6, 1),
			CoverageStart: ptr(date(2026, 6, 1)),
			CoverageEnd:   ptr(date(2026, 6, 30)),
		})
		require.NoError(t, err)
	}

	bBefore := env.ledgerFor(t, b.ID)

	result, err := env.reconciler.RebuildMember(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, result.MemberID)
	assert.Equal(t, a.ID, *result.MemberID)
	assert.Equal(t, 1, result.PaymentsReplayed)

	assert.Len(t, env.ledgerFor(t, a.ID), 1)
	bAfter := env.ledgerFor(t, b.ID)
	require.Len(t, bAfter, len(bBefore))
	for key, want := range bBefore {
		assert.True(t, bAfter[key].AmountPaid.Equal(want.AmountPaid), "other member's ledger untouched")
	}
}

func TestRecordPayment_WithoutScheduleWritesZeroDue(t *testing.T) {
	env := newBillingTestEnv(t)
	ctx := context.Background()

	m := env.seedMember(t, date(2026, 5, 1))

	_, err := env.reconciler.RecordPayment(ctx, RecordPaymentRequest{
		MemberID:      m.ID,
		Amount:        decimal.NewFromInt(100),
		Category:      "MONTHLY",
		Method:        "CASH",
		PaymentDate:   date(2026, 6, 1),
		CoverageStart: ptr(date(2026, 6, 1)),
		CoverageEnd:   ptr(date(2026, 6, 30)),
	})
	require.NoError(t, err)

	ledger := env.ledgerFor(t, m.ID)
	require.Len(t, ledger, 1)
	row := ledger["MONTHLY|2026-06"]
	assert.True(t, row.AmountDue.IsZero(), "missing schedule degrades to a zero expected fee")
	assert.Equal(t, billing.CoverageStatePaid, row.State)
}
