package billing

import (
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CoverageState is the payment state of one ledger entry
type CoverageState string

const (
	CoverageStatePaid    CoverageState = "PAID"
	CoverageStatePartial CoverageState = "PARTIAL"
)

// CoverageRecord is one entry of the sparse coverage ledger: how much of
// the expected fee for (member, category, month) has been paid, and by
// which payment. AmountDue is snapshotted from the fee schedule at
// reconciliation time so later fee changes do not rewrite history.
//
// Only the application-layer reconciler writes these records.
type CoverageRecord struct {
	shared.BaseAggregateRoot
	MemberID      uuid.UUID       `json:"member_id"`
	Category      FeeCategory     `json:"category"`
	YearMonth     YearMonth       `json:"year_month"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	State         CoverageState   `json:"state"`
	LastPaymentID uuid.UUID       `json:"last_payment_id"` // Teardown tag for update and delete
}

// NewCoverageRecord opens a ledger entry with the first contribution
func NewCoverageRecord(
	memberID uuid.UUID,
	category FeeCategory,
	ym YearMonth,
	amountDue decimal.Decimal,
	contribution decimal.Decimal,
	paymentID uuid.UUID,
) (*CoverageRecord, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBER", "Member ID cannot be empty")
	}
	if !category.CarriesCoverage() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Only coverage-bearing categories enter the ledger")
	}
	if !ym.IsValid() {
		return nil, shared.NewDomainError("INVALID_YEAR_MONTH", "Year-month must be in YYYY-MM form")
	}
	if amountDue.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount due cannot be negative")
	}
	if contribution.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Contribution cannot be negative")
	}

	r := &CoverageRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MemberID:          memberID,
		Category:          category,
		YearMonth:         ym,
		AmountDue:         amountDue,
		AmountPaid:        contribution,
		LastPaymentID:     paymentID,
	}
	r.recomputeState()
	return r, nil
}

// ApplyContribution adds a payment's per-month share to the record and
// re-tags it with the contributing payment.
func (r *CoverageRecord) ApplyContribution(contribution decimal.Decimal, paymentID uuid.UUID) error {
	if contribution.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Contribution cannot be negative")
	}
	r.AmountPaid = r.AmountPaid.Add(contribution)
	r.LastPaymentID = paymentID
	r.recomputeState()
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// IsSettled returns true when the entry is fully paid
func (r *CoverageRecord) IsSettled() bool {
	return r.State == CoverageStatePaid
}

// Outstanding returns the unpaid remainder, never negative
func (r *CoverageRecord) Outstanding() decimal.Decimal {
	out := r.AmountDue.Sub(r.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// A record with AmountDue of zero is settled by definition; this happens
// when the fee schedule carried a zero fee at reconciliation time.
func (r *CoverageRecord) recomputeState() {
	if r.AmountPaid.GreaterThanOrEqual(r.AmountDue) {
		r.State = CoverageStatePaid
	} else {
		r.State = CoverageStatePartial
	}
}

// SplitAcrossMonths divides a payment amount equally across n months,
// rounded to 4 decimal places. The last share absorbs the rounding
// remainder so the shares always sum back to the original amount.
func SplitAcrossMonths(amount decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	share := amount.DivRound(decimal.NewFromInt(int64(n)), 4)
	shares := make([]decimal.Decimal, n)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = share
		running = running.Add(share)
	}
	shares[n-1] = amount.Sub(running)
	return shares
}
