package billing

import (
	"fmt"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeCategory represents the kind of fee a payment settles
type FeeCategory string

const (
	FeeCategoryMonthly   FeeCategory = "MONTHLY"   // Primary training fee, coverage-bearing
	FeeCategoryTransport FeeCategory = "TRANSPORT" // Secondary transport fee, coverage-bearing
	FeeCategoryUniform   FeeCategory = "UNIFORM"   // One-off kit purchase, never carries a coverage period
	FeeCategorySignup    FeeCategory = "SIGNUP"    // One-off registration fee, never carries a coverage period
)

// IsValid checks if the category is a valid FeeCategory
func (c FeeCategory) IsValid() bool {
	switch c {
	case FeeCategoryMonthly, FeeCategoryTransport, FeeCategoryUniform, FeeCategorySignup:
		return true
	}
	return false
}

// String returns the string representation of FeeCategory
func (c FeeCategory) String() string {
	return string(c)
}

// CarriesCoverage returns true for categories reconciled into the coverage
// ledger. One-off categories are stored standalone and never touch a
// CoverageRecord.
func (c FeeCategory) CarriesCoverage() bool {
	return c == FeeCategoryMonthly || c == FeeCategoryTransport
}

// CoverageCategories returns the categories that may appear in the ledger
func CoverageCategories() []FeeCategory {
	return []FeeCategory{FeeCategoryMonthly, FeeCategoryTransport}
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard || m == PaymentMethodTransfer
}

// CoveragePeriod is the inclusive date range a payment is declared to pay
// for.
type CoveragePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewCoveragePeriod creates a coverage period, rejecting an end before start
func NewCoveragePeriod(start, end time.Time) (CoveragePeriod, error) {
	if start.IsZero() || end.IsZero() {
		return CoveragePeriod{}, shared.NewDomainError("INVALID_PERIOD", "Coverage period requires both start and end dates")
	}
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	if e.Before(s) {
		return CoveragePeriod{}, shared.NewDomainError("INVALID_PERIOD", "Coverage period end cannot be before start")
	}
	return CoveragePeriod{Start: s, End: e}, nil
}

// Months returns the calendar months the period touches, in order
func (p CoveragePeriod) Months() []YearMonth {
	return MonthsSpanned(p.Start, p.End)
}

// Payment represents a recorded financial event. Coverage-bearing payments
// (monthly, transport) must declare a coverage period; one-off payments
// must not.
type Payment struct {
	shared.BaseAggregateRoot
	MemberID      uuid.UUID       `json:"member_id"`
	Amount        decimal.Decimal `json:"amount"`
	Category      FeeCategory     `json:"category"`
	Method        PaymentMethod   `json:"method"`
	PaymentDate   time.Time       `json:"payment_date"`
	CoverageStart *time.Time      `json:"coverage_start"`
	CoverageEnd   *time.Time      `json:"coverage_end"`
	PayerName     string          `json:"payer_name"` // Free text; siblings are often paid by one guardian
	Remark        string          `json:"remark"`
}

// NewPayment creates a new payment. All validation happens here, before any
// ledger mutation.
func NewPayment(
	memberID uuid.UUID,
	amount decimal.Decimal,
	category FeeCategory,
	method PaymentMethod,
	paymentDate time.Time,
	period *CoveragePeriod,
	payerName string,
	remark string,
) (*Payment, error) {
	if memberID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBER", "Member ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Unknown fee category %q", category))
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", fmt.Sprintf("Unknown payment method %q", method))
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Payment date is required")
	}
	if category.CarriesCoverage() && period == nil {
		return nil, shared.NewDomainError("MISSING_PERIOD", fmt.Sprintf("Category %s requires a coverage period", category))
	}
	if !category.CarriesCoverage() && period != nil {
		return nil, shared.NewDomainError("UNEXPECTED_PERIOD", fmt.Sprintf("Category %s cannot carry a coverage period", category))
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MemberID:          memberID,
		Amount:            amount,
		Category:          category,
		Method:            method,
		PaymentDate:       paymentDate,
		PayerName:         payerName,
		Remark:            remark,
	}
	if period != nil {
		p.CoverageStart = &period.Start
		p.CoverageEnd = &period.End
	}

	p.AddDomainEvent(NewPaymentRecordedEvent(p))

	return p, nil
}

// CarriesCoverage returns true if the payment reconciles into the ledger
func (p *Payment) CarriesCoverage() bool {
	return p.Category.CarriesCoverage() && p.CoverageStart != nil && p.CoverageEnd != nil
}

// Period returns the declared coverage period, if any
func (p *Payment) Period() (CoveragePeriod, bool) {
	if p.CoverageStart == nil || p.CoverageEnd == nil {
		return CoveragePeriod{}, false
	}
	return CoveragePeriod{Start: *p.CoverageStart, End: *p.CoverageEnd}, true
}

// CoverageMonths returns the ordered calendar months the payment's period
// touches, or nil for standalone payments.
func (p *Payment) CoverageMonths() []YearMonth {
	period, ok := p.Period()
	if !ok {
		return nil
	}
	return period.Months()
}

// UpdateDetails replaces the mutable fields of the payment. The caller
// (reconciler) is responsible for tearing down and re-deriving coverage
// around this call.
func (p *Payment) UpdateDetails(
	amount decimal.Decimal,
	category FeeCategory,
	method PaymentMethod,
	paymentDate time.Time,
	period *CoveragePeriod,
	payerName string,
	remark string,
) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !category.IsValid() {
		return shared.NewDomainError("INVALID_CATEGORY", fmt.Sprintf("Unknown fee category %q", category))
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_METHOD", fmt.Sprintf("Unknown payment method %q", method))
	}
	if paymentDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Payment date is required")
	}
	if category.CarriesCoverage() && period == nil {
		return shared.NewDomainError("MISSING_PERIOD", fmt.Sprintf("Category %s requires a coverage period", category))
	}
	if !category.CarriesCoverage() && period != nil {
		return shared.NewDomainError("UNEXPECTED_PERIOD", fmt.Sprintf("Category %s cannot carry a coverage period", category))
	}

	p.Amount = amount
	p.Category = category
	p.Method = method
	p.PaymentDate = paymentDate
	p.PayerName = payerName
	p.Remark = remark
	if period != nil {
		p.CoverageStart = &period.Start
		p.CoverageEnd = &period.End
	} else {
		p.CoverageStart = nil
		p.CoverageEnd = nil
	}
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentUpdatedEvent(p))

	return nil
}
