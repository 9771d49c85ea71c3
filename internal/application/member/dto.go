package member

import (
	"time"

	"github.com/academy/backend/internal/domain/member"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateMemberRequest represents a request to register a new member
type CreateMemberRequest struct {
	FullName         string    `json:"full_name" binding:"required,min=1,max=200"`
	Phone            string    `json:"phone" binding:"max=50"`
	GuardianPhone    string    `json:"guardian_phone" binding:"max=50"`
	RegistrationDate time.Time `json:"registration_date" binding:"required"`
	Status           string    `json:"status" binding:"omitempty,oneof=ACTIVE TRIAL"`
	Remark           string    `json:"remark"`
}

// UpdateMemberRequest represents a request to update member contact details
type UpdateMemberRequest struct {
	FullName      *string `json:"full_name" binding:"omitempty,min=1,max=200"`
	Phone         *string `json:"phone" binding:"omitempty,max=50"`
	GuardianPhone *string `json:"guardian_phone" binding:"omitempty,max=50"`
	Remark        *string `json:"remark"`
}

// UpdateMemberStatusRequest represents a lifecycle transition request
type UpdateMemberStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE FROZEN INACTIVE"`
	Reason string `json:"reason" binding:"max=500"`
}

// CorrectRegistrationDateRequest represents an operator correction of the
// registration date. Applying it rebuilds the member's coverage.
type CorrectRegistrationDateRequest struct {
	RegistrationDate time.Time `json:"registration_date" binding:"required"`
}

// SetFeeScheduleRequest represents a request to configure a member's fees
type SetFeeScheduleRequest struct {
	MonthlyFee   decimal.Decimal `json:"monthly_fee" binding:"required"`
	TransportFee decimal.Decimal `json:"transport_fee"`
	Remark       string          `json:"remark"`
}

// ListMembersQuery represents member list filters
type ListMembersQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE TRIAL FROZEN INACTIVE"`
	Search   string `form:"search"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// MemberResponse represents a member in API responses
type MemberResponse struct {
	ID               uuid.UUID `json:"id"`
	FullName         string    `json:"full_name"`
	Phone            string    `json:"phone,omitempty"`
	GuardianPhone    string    `json:"guardian_phone,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
	BillingDay       int       `json:"billing_day"`
	Status           string    `json:"status"`
	Remark           string    `json:"remark,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toMemberResponse(m *member.Member) *MemberResponse {
	return &MemberResponse{
		ID:               m.ID,
		FullName:         m.FullName,
		Phone:            m.Phone,
		GuardianPhone:    m.GuardianPhone,
		RegistrationDate: m.RegistrationDate,
		BillingDay:       m.BillingAnchorDay(),
		Status:           string(m.Status),
		Remark:           m.Remark,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FeeScheduleResponse represents a fee schedule in API responses
type FeeScheduleResponse struct {
	MemberID     uuid.UUID       `json:"member_id"`
	MonthlyFee   decimal.Decimal `json:"monthly_fee"`
	TransportFee decimal.Decimal `json:"transport_fee"`
	Remark       string          `json:"remark,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toFeeScheduleResponse(f *member.FeeSchedule) *FeeScheduleResponse {
	return &FeeScheduleResponse{
		MemberID:     f.MemberID,
		MonthlyFee:   f.MonthlyFee,
		TransportFee: f.TransportFee,
		Remark:       f.Remark,
		UpdatedAt:    f.UpdatedAt,
	}
}
