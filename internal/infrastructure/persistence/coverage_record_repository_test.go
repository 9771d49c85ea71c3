package persistence

import (
	"context"
	"testing"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCoverageTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.CoverageRecordModel{})
	require.NoError(t, err)

	return db
}

func newLedgerRecord(t *testing.T, memberID uuid.UUID, ym billing.YearMonth, paid int64, paymentID uuid.UUID) *billing.CoverageRecord {
	t.Helper()
	r, err := billing.NewCoverageRecord(memberID, billing.FeeCategoryMonthly, ym,
		decimal.NewFromInt(100), decimal.NewFromInt(paid), paymentID)
	require.NoError(t, err)
	return r
}

func TestCoverageRecordRepository_FindByKey(t *testing.T) {
	db := setupCoverageTestDB(t)
	repo := NewGormCoverageRecordRepository(db)
	ctx := context.Background()

	memberID := uuid.New()
	paymentID := uuid.New()

	record := newLedgerRecord(t, memberID, "2026-08", 100, paymentID)
	require.NoError(t, repo.Save(ctx, record))

	t.Run("finds an existing ledger entry", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, memberID, billing.FeeCategoryMonthly, "2026-08")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, billing.CoverageStatePaid, found.State)
		assert.Equal(t, paymentID, found.LastPaymentID)
	})

	t.Run("absent month yields nil, not an error", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, memberID, billing.FeeCategoryMonthly, "2026-09")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("category is part of the key", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, memberID, billing.FeeCategoryTransport, "2026-08")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestCoverageRecordRepository_SaveUpdatesExisting(t *testing.T) {
	db := setupCoverageTestDB(t)
	repo := NewGormCoverageRecordRepository(db)
	ctx := context.Background()

	memberID := uuid.New()
	firstPayment := uuid.New()
	secondPayment := uuid.New()

	record := newLedgerRecord(t, memberID, "2026-08", 60, firstPayment)
	require.NoError(t, repo.Save(ctx, record))

	require.NoError(t, record.ApplyContribution(decimal.NewFromInt(40), secondPayment))
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByKey(ctx, memberID, billing.FeeCategoryMonthly, "2026-08")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, billing.CoverageStatePaid, found.State)
	assert.Equal(t, secondPayment, found.LastPaymentID)
}

func TestCoverageRecordRepository_DeleteTagged(t *testing.T) {
	db := setupCoverageTestDB(t)
	repo := NewGormCoverageRecordRepository(db)
	ctx := context.Background()

	memberID := uuid.New()
	taggedPayment := uuid.New()
	otherPayment := uuid.New()

	require.NoError(t, repo.Save(ctx, newLedgerRecord(t, memberID, "2026-06", 100, taggedPayment)))
	require.NoError(t, repo.Save(ctx, newLedgerRecord(t, memberID, "2026-07", 100, taggedPayment)))
	require.NoError(t, repo.Save(ctx, newLedgerRecord(t, memberID, "2026-08", 100, otherPayment)))

	t.Run("removes only rows tagged by the payment", func(t *testing.T) {
		require.NoError(t, repo.DeleteTagged(ctx, taggedPayment))

		records, err := repo.FindByMember(ctx, memberID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, billing.YearMonth("2026-08"), records[0].YearMonth)
	})

	t.Run("deleting an unknown tag is a no-op", func(t *testing.T) {
		require.NoError(t, repo.DeleteTagged(ctx, uuid.New()))
	})
}

func TestCoverageRecordRepository_FindByMemberOrder(t *testing.T) {
	db := setupCoverageTestDB(t)
	repo := NewGormCoverageRecordRepository(db)
	ctx := context.Background()

	memberID := uuid.New()
	paymentID := uuid.New()

	// Insert out of order; string ordering of YYYY-MM is chronological
	for _, ym := range []billing.YearMonth{"2026-03", "2025-12", "2026-01"} {
		require.NoError(t, repo.Save(ctx, newLedgerRecord(t, memberID, ym, 100, paymentID)))
	}

	records, err := repo.FindByMember(ctx, memberID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, billing.YearMonth("2025-12"), records[0].YearMonth)
	assert.Equal(t, billing.YearMonth("2026-01"), records[1].YearMonth)
	assert.Equal(t, billing.YearMonth("2026-03"), records[2].YearMonth)
}

func TestCoverageRecordRepository_DeleteScopes(t *testing.T) {
	db := setupCoverageTestDB(t)
	repo := NewGormCoverageRecordRepository(db)
	ctx := context.Background()

	memberA := uuid.New()
	memberB := uuid.New()
	paymentID := uuid.New()

	require.NoError(t, repo.Save(ctx, newLedgerRecord(t, memberA, "2026-08", 100, paymentID)))
	require.NoError(t, repo.Save(ctx, newLedgerRecord(t, memberB, "2026-08", 100, paymentID)))

	t.Run("delete by member leaves others untouched", func(t *testing.T) {
		require.NoError(t, repo.DeleteByMember(ctx, memberA))

		records, err := repo.FindByMember(ctx, memberA)
		require.NoError(t, err)
		assert.Empty(t, records)

		records, err = repo.FindByMember(ctx, memberB)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("delete all wipes the ledger", func(t *testing.T) {
		require.NoError(t, repo.DeleteAll(ctx))

		records, err := repo.FindByMember(ctx, memberB)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
