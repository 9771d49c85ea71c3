package billing

import (
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants for the billing aggregates
const (
	EventTypePaymentRecorded    = "billing.payment_recorded"
	EventTypePaymentUpdated     = "billing.payment_updated"
	EventTypePaymentDeleted     = "billing.payment_deleted"
	EventTypeCoverageRebuilt    = "billing.coverage_rebuilt"
	EventTypeEscalationAdvanced = "billing.escalation_advanced"
	EventTypeEscalationResolved = "billing.escalation_resolved"
)

// PaymentRecordedEvent is emitted when a payment is recorded
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	MemberID uuid.UUID       `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Category FeeCategory     `json:"category"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, "Payment", p.ID),
		MemberID:        p.MemberID,
		Amount:          p.Amount,
		Category:        p.Category,
	}
}

// PaymentUpdatedEvent is emitted when a payment's details change
type PaymentUpdatedEvent struct {
	shared.BaseDomainEvent
	MemberID uuid.UUID       `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Category FeeCategory     `json:"category"`
}

// NewPaymentUpdatedEvent creates a new PaymentUpdatedEvent
func NewPaymentUpdatedEvent(p *Payment) *PaymentUpdatedEvent {
	return &PaymentUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentUpdated, "Payment", p.ID),
		MemberID:        p.MemberID,
		Amount:          p.Amount,
		Category:        p.Category,
	}
}

// CoverageRebuiltEvent is emitted after a full ledger rebuild for a member
// scope (or all members when MemberID is nil).
type CoverageRebuiltEvent struct {
	shared.BaseDomainEvent
	MemberID       *uuid.UUID `json:"member_id,omitempty"`
	PaymentsReplayed int      `json:"payments_replayed"`
	RecordsWritten   int      `json:"records_written"`
	CompletedAt      time.Time `json:"completed_at"`
}

// NewCoverageRebuiltEvent creates a new CoverageRebuiltEvent
func NewCoverageRebuiltEvent(memberID *uuid.UUID, paymentsReplayed, recordsWritten int) *CoverageRebuiltEvent {
	agg := uuid.Nil
	if memberID != nil {
		agg = *memberID
	}
	return &CoverageRebuiltEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCoverageRebuilt, "CoverageLedger", agg),
		MemberID:         memberID,
		PaymentsReplayed: paymentsReplayed,
		RecordsWritten:   recordsWritten,
		CompletedAt:      time.Now(),
	}
}

// EscalationAdvancedEvent is emitted each time an escalation reaches a new tier
type EscalationAdvancedEvent struct {
	shared.BaseDomainEvent
	MemberID    uuid.UUID      `json:"member_id"`
	Category    FeeCategory    `json:"category"`
	YearMonth   YearMonth      `json:"year_month"`
	Tier        EscalationTier `json:"tier"`
	DaysOverdue int            `json:"days_overdue"`
}

// NewEscalationAdvancedEvent creates a new EscalationAdvancedEvent
func NewEscalationAdvancedEvent(e *Escalation, daysOverdue int) *EscalationAdvancedEvent {
	return &EscalationAdvancedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEscalationAdvanced, "Escalation", e.ID),
		MemberID:        e.MemberID,
		Category:        e.Category,
		YearMonth:       e.YearMonth,
		Tier:            e.Tier,
		DaysOverdue:     daysOverdue,
	}
}

// EscalationResolvedEvent is emitted when the underlying debt is settled
type EscalationResolvedEvent struct {
	shared.BaseDomainEvent
	MemberID  uuid.UUID   `json:"member_id"`
	Category  FeeCategory `json:"category"`
	YearMonth YearMonth   `json:"year_month"`
}

// NewEscalationResolvedEvent creates a new EscalationResolvedEvent
func NewEscalationResolvedEvent(e *Escalation) *EscalationResolvedEvent {
	return &EscalationResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEscalationResolved, "Escalation", e.ID),
		MemberID:        e.MemberID,
		Category:        e.Category,
		YearMonth:       e.YearMonth,
	}
}
