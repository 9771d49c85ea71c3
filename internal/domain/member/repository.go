package member

import (
	"context"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MemberFilter defines filtering options for member queries
type MemberFilter struct {
	shared.Filter
	Status *Status // Filter by lifecycle status
}

// MemberRepository defines the interface for member persistence
type MemberRepository interface {
	// FindByID finds a member by ID; returns nil when not found
	FindByID(ctx context.Context, id uuid.UUID) (*Member, error)

	// FindAll finds members with filtering
	FindAll(ctx context.Context, filter MemberFilter) ([]Member, error)

	// FindBillable finds members in a billable status (active or trial)
	FindBillable(ctx context.Context) ([]Member, error)

	// Save creates or updates a member
	Save(ctx context.Context, m *Member) error

	// Delete removes a member
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts members matching the filter
	Count(ctx context.Context, filter MemberFilter) (int64, error)
}

// FeeScheduleRepository defines the interface for fee schedule persistence
type FeeScheduleRepository interface {
	// FindByMemberID finds the fee schedule for a member; returns nil when
	// the member has no schedule configured
	FindByMemberID(ctx context.Context, memberID uuid.UUID) (*FeeSchedule, error)

	// Save creates or updates a fee schedule
	Save(ctx context.Context, schedule *FeeSchedule) error

	// Delete removes the fee schedule for a member
	Delete(ctx context.Context, memberID uuid.UUID) error
}
