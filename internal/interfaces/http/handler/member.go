package handler

import (
	memberapp "github.com/academy/backend/internal/application/member"
	"github.com/gin-gonic/gin"
)

// MemberHandler handles member-related API endpoints
type MemberHandler struct {
	BaseHandler
	memberService *memberapp.MemberService
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(memberService *memberapp.MemberService) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
	}
}

// Create registers a new member. The registration date fixes the member's
// billing anchor day.
func (h *MemberHandler) Create(c *gin.Context) {
	var req memberapp.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, member)
}

// List returns a paginated list of members
func (h *MemberHandler) List(c *gin.Context) {
	var query memberapp.ListMembersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.memberService.List(c.Request.Context(), query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns a single member by ID
func (h *MemberHandler) Get(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	member, err := h.memberService.Get(c.Request.Context(), memberID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, member)
}

// Update modifies a member's contact details
func (h *MemberHandler) Update(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	var req memberapp.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.Update(c.Request.Context(), memberID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, member)
}

// UpdateStatus transitions a member between ACTIVE, FROZEN and INACTIVE
func (h *MemberHandler) UpdateStatus(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	var req memberapp.UpdateMemberStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.UpdateStatus(c.Request.Context(), memberID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, member)
}

// CorrectRegistrationDate fixes a mistyped registration date. The member's
// billing anchor moves and the coverage ledger is rebuilt from payments.
func (h *MemberHandler) CorrectRegistrationDate(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	var req memberapp.CorrectRegistrationDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.CorrectRegistrationDate(c.Request.Context(), memberID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, member)
}

// Delete removes a member along with their fee schedule and coverage ledger.
// Recorded payments are kept as financial history.
func (h *MemberHandler) Delete(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	if err := h.memberService.Delete(c.Request.Context(), memberID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// SetFeeSchedule creates or replaces the member's fee configuration
func (h *MemberHandler) SetFeeSchedule(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	var req memberapp.SetFeeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	schedule, err := h.memberService.SetFeeSchedule(c.Request.Context(), memberID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, schedule)
}

// GetFeeSchedule returns the member's fee configuration
func (h *MemberHandler) GetFeeSchedule(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	schedule, err := h.memberService.GetFeeSchedule(c.Request.Context(), memberID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, schedule)
}
