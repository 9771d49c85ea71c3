package persistence

import (
	"context"
	"errors"

	"github.com/academy/backend/internal/domain/member"
	"github.com/academy/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFeeScheduleRepository implements FeeScheduleRepository using GORM
type GormFeeScheduleRepository struct {
	db *gorm.DB
}

// NewGormFeeScheduleRepository creates a new GormFeeScheduleRepository
func NewGormFeeScheduleRepository(db *gorm.DB) *GormFeeScheduleRepository {
	return &GormFeeScheduleRepository{db: db}
}

// FindByMemberID finds the fee schedule for a member; returns nil when the
// member has no schedule configured
func (r *GormFeeScheduleRepository) FindByMemberID(ctx context.Context, memberID uuid.UUID) (*member.FeeSchedule, error) {
	var model models.FeeScheduleModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		First(&model, "member_id = ?", memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a fee schedule
func (r *GormFeeScheduleRepository) Save(ctx context.Context, schedule *member.FeeSchedule) error {
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(models.FeeScheduleModelFromDomain(schedule)).Error
}

// Delete removes the fee schedule for a member. Deleting an absent schedule
// is not an error so member teardown stays idempotent.
func (r *GormFeeScheduleRepository) Delete(ctx context.Context, memberID uuid.UUID) error {
	return dbFromContext(ctx, r.db).WithContext(ctx).
		Delete(&models.FeeScheduleModel{}, "member_id = ?", memberID).Error
}

// Ensure GormFeeScheduleRepository implements FeeScheduleRepository
var _ member.FeeScheduleRepository = (*GormFeeScheduleRepository)(nil)
