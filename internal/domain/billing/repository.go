package billing

import (
	"context"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	MemberID *uuid.UUID
	Category *FeeCategory
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID; returns nil when not found
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindAll finds payments with filtering, newest payment date first
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)

	// FindCoverageBearing returns every coverage-bearing payment ordered by
	// payment date then creation time, for deterministic ledger replay.
	// A nil memberID selects all members.
	FindCoverageBearing(ctx context.Context, memberID *uuid.UUID) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, p *Payment) error

	// Delete removes a payment
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts payments matching the filter
	Count(ctx context.Context, filter PaymentFilter) (int64, error)
}

// CoverageRecordRepository defines the interface for the coverage ledger.
// Only the reconciler may call the mutating methods.
type CoverageRecordRepository interface {
	// FindByKey finds the record for (member, category, month); returns nil
	// when absent. Absence means overdue for an applicable month.
	FindByKey(ctx context.Context, memberID uuid.UUID, category FeeCategory, ym YearMonth) (*CoverageRecord, error)

	// FindByMember returns all records for a member ordered by month
	FindByMember(ctx context.Context, memberID uuid.UUID) ([]CoverageRecord, error)

	// Save creates or updates a ledger record
	Save(ctx context.Context, r *CoverageRecord) error

	// DeleteTagged removes every record whose teardown tag is the given
	// payment. Records the payment contributed to but was not the last
	// writer of are left alone; RebuildAll corrects that drift.
	DeleteTagged(ctx context.Context, paymentID uuid.UUID) error

	// DeleteByMember removes all records for one member
	DeleteByMember(ctx context.Context, memberID uuid.UUID) error

	// DeleteAll wipes the ledger ahead of a full rebuild
	DeleteAll(ctx context.Context) error
}

// EscalationRepository defines the interface for escalation persistence
type EscalationRepository interface {
	// FindByID finds an escalation by ID; returns nil when not found
	FindByID(ctx context.Context, id uuid.UUID) (*Escalation, error)

	// FindOpenByKey finds the open escalation for (member, category, month);
	// returns nil when the key has no open instance
	FindOpenByKey(ctx context.Context, memberID uuid.UUID, category FeeCategory, ym YearMonth) (*Escalation, error)

	// FindOpenByMember returns all open escalations for a member
	FindOpenByMember(ctx context.Context, memberID uuid.UUID) ([]Escalation, error)

	// FindOpen returns every open escalation, for the sweep
	FindOpen(ctx context.Context) ([]Escalation, error)

	// FindByMember returns the full escalation history for a member,
	// resolved instances included, newest first
	FindByMember(ctx context.Context, memberID uuid.UUID) ([]Escalation, error)

	// Save creates or updates an escalation
	Save(ctx context.Context, e *Escalation) error
}
