package member

import (
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeSchedule holds the configured fees for one member. A member without a
// FeeSchedule cannot be evaluated for due status.
type FeeSchedule struct {
	shared.BaseAggregateRoot
	MemberID     uuid.UUID       `json:"member_id"`
	MonthlyFee   decimal.Decimal `json:"monthly_fee"`
	TransportFee decimal.Decimal `json:"transport_fee"` // Zero when the member has no transport service
	Remark       string          `json:"remark"`
}

// NewFeeSchedule creates a new fee schedule for a member
func NewFeeSchedule(memberID uuid.UUID, monthlyFee, transportFee decimal.Decimal) (*FeeSchedule, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBER", "Member ID cannot be empty")
	}
	if monthlyFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_FEE", "Monthly fee cannot be negative")
	}
	if transportFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_FEE", "Transport fee cannot be negative")
	}

	return &FeeSchedule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MemberID:          memberID,
		MonthlyFee:        monthlyFee,
		TransportFee:      transportFee,
	}, nil
}

// UpdateFees replaces the configured fee amounts. Existing coverage records
// keep the amounts snapshotted at reconciliation time; only future records
// pick up the change.
func (f *FeeSchedule) UpdateFees(monthlyFee, transportFee decimal.Decimal) error {
	if monthlyFee.IsNegative() {
		return shared.NewDomainError("INVALID_FEE", "Monthly fee cannot be negative")
	}
	if transportFee.IsNegative() {
		return shared.NewDomainError("INVALID_FEE", "Transport fee cannot be negative")
	}
	f.MonthlyFee = monthlyFee
	f.TransportFee = transportFee
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
	return nil
}

// HasTransport returns true if a transport fee is configured
func (f *FeeSchedule) HasTransport() bool {
	return f.TransportFee.IsPositive()
}
