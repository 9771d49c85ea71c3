package persistence

import (
	"context"
	"errors"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCoverageRecordRepository implements CoverageRecordRepository using GORM.
// The ledger is sparse; a missing row for an applicable month means the month
// is unpaid, so lookups report absence as a nil record rather than an error.
type GormCoverageRecordRepository struct {
	db *gorm.DB
}

// NewGormCoverageRecordRepository creates a new GormCoverageRecordRepository
func NewGormCoverageRecordRepository(db *gorm.DB) *GormCoverageRecordRepository {
	return &GormCoverageRecordRepository{db: db}
}

// FindByKey finds the record for (member, category, month); returns nil when absent
func (r *GormCoverageRecordRepository) FindByKey(ctx context.Context, memberID uuid.UUID, category billing.FeeCategory, ym billing.YearMonth) (*billing.CoverageRecord, error) {
	var model models.CoverageRecordModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("member_id = ? AND category = ? AND year_month = ?", memberID, category, ym).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByMember returns all records for a member ordered by month
func (r *GormCoverageRecordRepository) FindByMember(ctx context.Context, memberID uuid.UUID) ([]billing.CoverageRecord, error) {
	var recordModels []models.CoverageRecordModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("year_month ASC, category ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]billing.CoverageRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// Save creates or updates a ledger record
func (r *GormCoverageRecordRepository) Save(ctx context.Context, record *billing.CoverageRecord) error {
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(models.CoverageRecordModelFromDomain(record)).Error
}

// DeleteTagged removes every record whose teardown tag is the given payment.
// Zero affected rows is fine; the payment may have been fully overwritten by
// later contributions.
func (r *GormCoverageRecordRepository) DeleteTagged(ctx context.Context, paymentID uuid.UUID) error {
	return dbFromContext(ctx, r.db).WithContext(ctx).
		Delete(&models.CoverageRecordModel{}, "last_payment_id = ?", paymentID).Error
}

// DeleteByMember removes all records for one member
func (r *GormCoverageRecordRepository) DeleteByMember(ctx context.Context, memberID uuid.UUID) error {
	return dbFromContext(ctx, r.db).WithContext(ctx).
		Delete(&models.CoverageRecordModel{}, "member_id = ?", memberID).Error
}

// DeleteAll wipes the ledger ahead of a full rebuild
func (r *GormCoverageRecordRepository) DeleteAll(ctx context.Context) error {
	return dbFromContext(ctx, r.db).WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.CoverageRecordModel{}).Error
}

// Ensure GormCoverageRecordRepository implements CoverageRecordRepository
var _ billing.CoverageRecordRepository = (*GormCoverageRecordRepository)(nil)
