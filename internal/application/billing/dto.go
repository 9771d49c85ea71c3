package billing

import (
	"time"

	"github.com/academy/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Payment DTOs
// =============================================================================

// RecordPaymentRequest represents a request to record a new payment
type RecordPaymentRequest struct {
	MemberID      uuid.UUID       `json:"member_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Category      string          `json:"category" binding:"required,oneof=MONTHLY TRANSPORT UNIFORM SIGNUP"`
	Method        string          `json:"method" binding:"required,oneof=CASH CARD TRANSFER"`
	PaymentDate   time.Time       `json:"payment_date" binding:"required"`
	CoverageStart *time.Time      `json:"coverage_start"`
	CoverageEnd   *time.Time      `json:"coverage_end"`
	PayerName     string          `json:"payer_name" binding:"max=200"`
	Remark        string          `json:"remark"`
}

// UpdatePaymentRequest represents a request to update an existing payment.
// All reconciled fields are required; the ledger is re-derived from scratch
// for this payment's tag, so a partial update would be ambiguous.
type UpdatePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Category      string          `json:"category" binding:"required,oneof=MONTHLY TRANSPORT UNIFORM SIGNUP"`
	Method        string          `json:"method" binding:"required,oneof=CASH CARD TRANSFER"`
	PaymentDate   time.Time       `json:"payment_date" binding:"required"`
	CoverageStart *time.Time      `json:"coverage_start"`
	CoverageEnd   *time.Time      `json:"coverage_end"`
	PayerName     string          `json:"payer_name" binding:"max=200"`
	Remark        string          `json:"remark"`
}

// ListPaymentsQuery represents payment list filters
type ListPaymentsQuery struct {
	MemberID *uuid.UUID `form:"member_id"`
	Category string     `form:"category" binding:"omitempty,oneof=MONTHLY TRANSPORT UNIFORM SIGNUP"`
	Search   string     `form:"search"`
	Page     int        `form:"page,default=1" binding:"min=1"`
	PageSize int        `form:"page_size,default=20" binding:"min=1,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	MemberID      uuid.UUID       `json:"member_id"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Method        string          `json:"method"`
	PaymentDate   time.Time       `json:"payment_date"`
	CoverageStart *time.Time      `json:"coverage_start,omitempty"`
	CoverageEnd   *time.Time      `json:"coverage_end,omitempty"`
	PayerName     string          `json:"payer_name,omitempty"`
	Remark        string          `json:"remark,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toPaymentResponse(p *billing.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.ID,
		MemberID:      p.MemberID,
		Amount:        p.Amount,
		Category:      string(p.Category),
		Method:        string(p.Method),
		PaymentDate:   p.PaymentDate,
		CoverageStart: p.CoverageStart,
		CoverageEnd:   p.CoverageEnd,
		PayerName:     p.PayerName,
		Remark:        p.Remark,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// RebuildResult reports the outcome of a coverage rebuild
type RebuildResult struct {
	MemberID         *uuid.UUID `json:"member_id,omitempty"`
	PaymentsReplayed int        `json:"payments_replayed"`
	RecordsWritten   int        `json:"records_written"`
}

// =============================================================================
// Coverage & due status DTOs
// =============================================================================

// CoverageRecordResponse represents one ledger entry in API responses
type CoverageRecordResponse struct {
	Category      string          `json:"category"`
	YearMonth     string          `json:"year_month"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	State         string          `json:"state"`
	LastPaymentID uuid.UUID       `json:"last_payment_id"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toCoverageRecordResponse(r *billing.CoverageRecord) CoverageRecordResponse {
	return CoverageRecordResponse{
		Category:      string(r.Category),
		YearMonth:     string(r.YearMonth),
		AmountDue:     r.AmountDue,
		AmountPaid:    r.AmountPaid,
		State:         string(r.State),
		LastPaymentID: r.LastPaymentID,
		UpdatedAt:     r.UpdatedAt,
	}
}

// DashboardResponse aggregates the due classification of every billable member
type DashboardResponse struct {
	TotalMembers     int             `json:"total_members"`
	Paid             int             `json:"paid"`
	Partial          int             `json:"partial"`
	Overdue          int             `json:"overdue"`
	NoConfig         int             `json:"no_config"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	EvaluatedAt      time.Time       `json:"evaluated_at"`
}

// SweepResult reports the outcome of one escalation sweep
type SweepResult struct {
	MembersEvaluated int `json:"members_evaluated"`
	Opened           int `json:"opened"`
	Advanced         int `json:"advanced"`
	Resolved         int `json:"resolved"`
	Frozen           int `json:"frozen"`
}

// EscalationResponse represents an escalation in API responses
type EscalationResponse struct {
	ID            uuid.UUID                   `json:"id"`
	MemberID      uuid.UUID                   `json:"member_id"`
	Category      string                      `json:"category"`
	YearMonth     string                      `json:"year_month"`
	Tier          string                      `json:"tier"`
	Notifications billing.NotificationLog     `json:"notifications"`
	ResolvedAt    *time.Time                  `json:"resolved_at,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
}

func toEscalationResponse(e *billing.Escalation) EscalationResponse {
	return EscalationResponse{
		ID:            e.ID,
		MemberID:      e.MemberID,
		Category:      string(e.Category),
		YearMonth:     string(e.YearMonth),
		Tier:          string(e.Tier),
		Notifications: e.Notifications,
		ResolvedAt:    e.ResolvedAt,
		CreatedAt:     e.CreatedAt,
	}
}
