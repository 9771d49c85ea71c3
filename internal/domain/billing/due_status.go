package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DueClassification is the derived payment state of a member for one
// category and month. It is never persisted; the projector derives it from
// the ledger on demand.
type DueClassification string

const (
	DueStatusPaid        DueClassification = "PAID"
	DueStatusPartial     DueClassification = "PARTIAL"
	DueStatusOverdue     DueClassification = "OVERDUE"   // No ledger record for an applicable month
	DueStatusNoConfig    DueClassification = "NO_CONFIG" // Member has no fee schedule
	DueStatusNotBillable DueClassification = "NOT_BILLABLE"
)

// severity orders classifications so a member's overall state is the worst
// of the per-category states.
func (c DueClassification) severity() int {
	switch c {
	case DueStatusOverdue:
		return 4
	case DueStatusNoConfig:
		return 3
	case DueStatusPartial:
		return 2
	case DueStatusPaid:
		return 1
	}
	return 0
}

// Worse returns the more severe of the two classifications
func (c DueClassification) Worse(other DueClassification) DueClassification {
	if other.severity() > c.severity() {
		return other
	}
	return c
}

// ClassifyCoverage maps a ledger lookup result to a classification.
// A nil record means the applicable month was never reconciled: overdue.
func ClassifyCoverage(record *CoverageRecord) DueClassification {
	if record == nil {
		return DueStatusOverdue
	}
	if record.IsSettled() {
		return DueStatusPaid
	}
	return DueStatusPartial
}

// CategoryDueStatus is the derived state of one (category, month) key
type CategoryDueStatus struct {
	Category       FeeCategory       `json:"category"`
	YearMonth      YearMonth         `json:"year_month"`
	Classification DueClassification `json:"classification"`
	AmountDue      decimal.Decimal   `json:"amount_due"`
	AmountPaid     decimal.Decimal   `json:"amount_paid"`
	Outstanding    decimal.Decimal   `json:"outstanding"`
}

// MemberDueStatus is the full derived billing state of one member, the
// projector's output and the unit the due-status cache stores.
type MemberDueStatus struct {
	MemberID       uuid.UUID           `json:"member_id"`
	Classification DueClassification   `json:"classification"`
	BillingDay     int                 `json:"billing_day"`
	CurrentDue     YearMonth           `json:"current_due,omitempty"`
	DaysSinceDue   int                 `json:"days_since_due"`
	Categories     []CategoryDueStatus `json:"categories,omitempty"`
	Arrears        []CategoryDueStatus `json:"arrears,omitempty"` // Unsettled earlier months
	EvaluatedAt    time.Time           `json:"evaluated_at"`
}

// TotalOutstanding sums the outstanding amounts of current and arrears keys
func (s *MemberDueStatus) TotalOutstanding() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.Categories {
		total = total.Add(c.Outstanding)
	}
	for _, a := range s.Arrears {
		total = total.Add(a.Outstanding)
	}
	return total
}

// DueStatusCache caches projector output per member. Implementations live
// in the infrastructure layer; a nil result with a nil error is a miss.
type DueStatusCache interface {
	Get(ctx context.Context, memberID uuid.UUID) (*MemberDueStatus, error)
	Set(ctx context.Context, status *MemberDueStatus, ttl time.Duration) error
	Delete(ctx context.Context, memberID uuid.UUID) error
	InvalidateAll(ctx context.Context) error
	Close() error
}
