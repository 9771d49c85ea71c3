package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/academy/backend/internal/domain/member"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMemberRepository implements MemberRepository using GORM
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a new GormMemberRepository
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// FindByID finds a member by ID; returns nil when not found
func (r *GormMemberRepository) FindByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	var model models.MemberModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds members matching the filter
func (r *GormMemberRepository) FindAll(ctx context.Context, filter member.MemberFilter) ([]member.Member, error) {
	var memberModels []models.MemberModel
	query := r.applyFilter(dbFromContext(ctx, r.db).WithContext(ctx).Model(&models.MemberModel{}), filter)

	if err := query.Find(&memberModels).Error; err != nil {
		return nil, err
	}

	members := make([]member.Member, len(memberModels))
	for i, model := range memberModels {
		members[i] = *model.ToDomain()
	}
	return members, nil
}

// FindBillable finds members in a billable status (active or trial)
func (r *GormMemberRepository) FindBillable(ctx context.Context) ([]member.Member, error) {
	var memberModels []models.MemberModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("status IN ?", []member.Status{member.StatusActive, member.StatusTrial}).
		Order("full_name ASC").
		Find(&memberModels).Error; err != nil {
		return nil, err
	}

	members := make([]member.Member, len(memberModels))
	for i, model := range memberModels {
		members[i] = *model.ToDomain()
	}
	return members, nil
}

// Save creates or updates a member
func (r *GormMemberRepository) Save(ctx context.Context, m *member.Member) error {
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(models.MemberModelFromDomain(m)).Error
}

// Delete deletes a member
func (r *GormMemberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := dbFromContext(ctx, r.db).WithContext(ctx).Delete(&models.MemberModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts members matching the filter
func (r *GormMemberRepository) Count(ctx context.Context, filter member.MemberFilter) (int64, error) {
	var count int64
	query := dbFromContext(ctx, r.db).WithContext(ctx).Model(&models.MemberModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormMemberRepository) applyFilter(query *gorm.DB, filter member.MemberFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, MemberSortFields, "full_name")
	orderDir := ValidateSortOrder(filter.OrderDir)
	if strings.TrimSpace(filter.OrderBy) == "" {
		orderDir = "ASC"
	}
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormMemberRepository) applyFilterWithoutPagination(query *gorm.DB, filter member.MemberFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("full_name LIKE ? OR phone LIKE ? OR guardian_phone LIKE ?",
			searchPattern, searchPattern, searchPattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// Ensure GormMemberRepository implements MemberRepository
var _ member.MemberRepository = (*GormMemberRepository)(nil)
