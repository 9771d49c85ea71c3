package persistence

import (
	"context"
	"errors"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/academy/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEscalationRepository implements EscalationRepository using GORM
type GormEscalationRepository struct {
	db *gorm.DB
}

// NewGormEscalationRepository creates a new GormEscalationRepository
func NewGormEscalationRepository(db *gorm.DB) *GormEscalationRepository {
	return &GormEscalationRepository{db: db}
}

// FindByID finds an escalation by ID; returns nil when not found
func (r *GormEscalationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Escalation, error) {
	var model models.EscalationModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByKey finds the open escalation for (member, category, month);
// returns nil when the key has no open instance
func (r *GormEscalationRepository) FindOpenByKey(ctx context.Context, memberID uuid.UUID, category billing.FeeCategory, ym billing.YearMonth) (*billing.Escalation, error) {
	var model models.EscalationModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("member_id = ? AND category = ? AND year_month = ? AND resolved_at IS NULL", memberID, category, ym).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByMember returns all open escalations for a member
func (r *GormEscalationRepository) FindOpenByMember(ctx context.Context, memberID uuid.UUID) ([]billing.Escalation, error) {
	var escalationModels []models.EscalationModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("member_id = ? AND resolved_at IS NULL", memberID).
		Order("year_month ASC, category ASC").
		Find(&escalationModels).Error; err != nil {
		return nil, err
	}
	return toDomainEscalations(escalationModels), nil
}

// FindOpen returns every open escalation, for the sweep
func (r *GormEscalationRepository) FindOpen(ctx context.Context) ([]billing.Escalation, error) {
	var escalationModels []models.EscalationModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("member_id ASC, year_month ASC, category ASC").
		Find(&escalationModels).Error; err != nil {
		return nil, err
	}
	return toDomainEscalations(escalationModels), nil
}

// FindByMember returns the full escalation history for a member, resolved
// instances included, newest first
func (r *GormEscalationRepository) FindByMember(ctx context.Context, memberID uuid.UUID) ([]billing.Escalation, error) {
	var escalationModels []models.EscalationModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&escalationModels).Error; err != nil {
		return nil, err
	}
	return toDomainEscalations(escalationModels), nil
}

// Save creates or updates an escalation
func (r *GormEscalationRepository) Save(ctx context.Context, e *billing.Escalation) error {
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(models.EscalationModelFromDomain(e)).Error
}

func toDomainEscalations(escalationModels []models.EscalationModel) []billing.Escalation {
	escalations := make([]billing.Escalation, len(escalationModels))
	for i, model := range escalationModels {
		escalations[i] = *model.ToDomain()
	}
	return escalations
}

// Ensure GormEscalationRepository implements EscalationRepository
var _ billing.EscalationRepository = (*GormEscalationRepository)(nil)
