package models

import (
	"time"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment domain entity.
type PaymentModel struct {
	AggregateModel
	MemberID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Category      billing.FeeCategory   `gorm:"type:varchar(20);not null;index"`
	Method        billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	PaymentDate   time.Time             `gorm:"type:date;not null;index"`
	CoverageStart *time.Time            `gorm:"type:date"`
	CoverageEnd   *time.Time            `gorm:"type:date"`
	PayerName     string                `gorm:"type:varchar(200)"`
	Remark        string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseAggregateRoot: m.aggregateRoot(),
		MemberID:          m.MemberID,
		Amount:            m.Amount,
		Category:          m.Category,
		Method:            m.Method,
		PaymentDate:       m.PaymentDate,
		CoverageStart:     m.CoverageStart,
		CoverageEnd:       m.CoverageEnd,
		PayerName:         m.PayerName,
		Remark:            m.Remark,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(d *billing.Payment) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.MemberID = d.MemberID
	m.Amount = d.Amount
	m.Category = d.Category
	m.Method = d.Method
	m.PaymentDate = d.PaymentDate
	m.CoverageStart = d.CoverageStart
	m.CoverageEnd = d.CoverageEnd
	m.PayerName = d.PayerName
	m.Remark = d.Remark
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(d *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(d)
	return m
}

// CoverageRecordModel is the persistence model for the CoverageRecord ledger
// entry. The unique index on (member_id, category, year_month) enforces the
// one-record-per-key shape of the sparse ledger at the database level.
type CoverageRecordModel struct {
	AggregateModel
	MemberID      uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_coverage_member_category_month,priority:1"`
	Category      billing.FeeCategory   `gorm:"type:varchar(20);not null;uniqueIndex:idx_coverage_member_category_month,priority:2"`
	YearMonth     billing.YearMonth     `gorm:"type:varchar(7);not null;uniqueIndex:idx_coverage_member_category_month,priority:3"`
	AmountDue     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	AmountPaid    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	State         billing.CoverageState `gorm:"type:varchar(20);not null"`
	LastPaymentID uuid.UUID             `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (CoverageRecordModel) TableName() string {
	return "coverage_records"
}

// ToDomain converts the persistence model to a domain CoverageRecord entity.
func (m *CoverageRecordModel) ToDomain() *billing.CoverageRecord {
	return &billing.CoverageRecord{
		BaseAggregateRoot: m.aggregateRoot(),
		MemberID:          m.MemberID,
		Category:          m.Category,
		YearMonth:         m.YearMonth,
		AmountDue:         m.AmountDue,
		AmountPaid:        m.AmountPaid,
		State:             m.State,
		LastPaymentID:     m.LastPaymentID,
	}
}

// FromDomain populates the persistence model from a domain CoverageRecord entity.
func (m *CoverageRecordModel) FromDomain(d *billing.CoverageRecord) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.MemberID = d.MemberID
	m.Category = d.Category
	m.YearMonth = d.YearMonth
	m.AmountDue = d.AmountDue
	m.AmountPaid = d.AmountPaid
	m.State = d.State
	m.LastPaymentID = d.LastPaymentID
}

// CoverageRecordModelFromDomain creates a new persistence model from a domain CoverageRecord entity.
func CoverageRecordModelFromDomain(d *billing.CoverageRecord) *CoverageRecordModel {
	m := &CoverageRecordModel{}
	m.FromDomain(d)
	return m
}

// EscalationModel is the persistence model for the Escalation domain entity.
// Resolved rows stay in the table as follow-up history; the open instance for
// a key is the one with a NULL resolved_at.
type EscalationModel struct {
	AggregateModel
	MemberID      uuid.UUID               `gorm:"type:uuid;not null;index:idx_escalation_key,priority:1"`
	Category      billing.FeeCategory     `gorm:"type:varchar(20);not null;index:idx_escalation_key,priority:2"`
	YearMonth     billing.YearMonth       `gorm:"type:varchar(7);not null;index:idx_escalation_key,priority:3"`
	Tier          billing.EscalationTier  `gorm:"type:varchar(20);not null"`
	Notifications billing.NotificationLog `gorm:"type:jsonb;not null;default:'[]'"`
	ResolvedAt    *time.Time              `gorm:"index"`
}

// TableName returns the table name for GORM
func (EscalationModel) TableName() string {
	return "escalations"
}

// ToDomain converts the persistence model to a domain Escalation entity.
func (m *EscalationModel) ToDomain() *billing.Escalation {
	return &billing.Escalation{
		BaseAggregateRoot: m.aggregateRoot(),
		MemberID:          m.MemberID,
		Category:          m.Category,
		YearMonth:         m.YearMonth,
		Tier:              m.Tier,
		Notifications:     m.Notifications,
		ResolvedAt:        m.ResolvedAt,
	}
}

// FromDomain populates the persistence model from a domain Escalation entity.
func (m *EscalationModel) FromDomain(d *billing.Escalation) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.MemberID = d.MemberID
	m.Category = d.Category
	m.YearMonth = d.YearMonth
	m.Tier = d.Tier
	m.Notifications = d.Notifications
	m.ResolvedAt = d.ResolvedAt
}

// EscalationModelFromDomain creates a new persistence model from a domain Escalation entity.
func EscalationModelFromDomain(d *billing.Escalation) *EscalationModel {
	m := &EscalationModel{}
	m.FromDomain(d)
	return m
}
