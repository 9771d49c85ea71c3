package handler

import (
	billingapp "github.com/academy/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// BillingHandler handles due status, coverage and escalation endpoints
type BillingHandler struct {
	BaseHandler
	dueStatusService  *billingapp.DueStatusService
	escalationService *billingapp.EscalationService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(dueStatusService *billingapp.DueStatusService, escalationService *billingapp.EscalationService) *BillingHandler {
	return &BillingHandler{
		dueStatusService:  dueStatusService,
		escalationService: escalationService,
	}
}

// GetDueStatus returns the member's due classification per fee category
func (h *BillingHandler) GetDueStatus(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	status, err := h.dueStatusService.GetMemberDueStatus(c.Request.Context(), memberID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, status)
}

// GetBillingInfo returns the member's billing cycle derived from their
// registration anchor day.
func (h *BillingHandler) GetBillingInfo(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	info, err := h.dueStatusService.GetBillingInfo(c.Request.Context(), memberID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, info)
}

// GetCoverage returns the member's coverage ledger. Months with no payment
// activity have no row; their absence means overdue.
func (h *BillingHandler) GetCoverage(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	records, err := h.dueStatusService.GetCoverage(c.Request.Context(), memberID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, records)
}

// GetEscalations returns the member's escalation history, open and resolved
func (h *BillingHandler) GetEscalations(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	escalations, err := h.escalationService.GetMemberEscalations(c.Request.Context(), memberID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, escalations)
}

// Dashboard aggregates the due classification of every billable member
func (h *BillingHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.dueStatusService.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dashboard)
}

// Sweep runs one escalation pass over all overdue arrears months, opening,
// advancing and resolving escalations as thresholds are crossed.
func (h *BillingHandler) Sweep(c *gin.Context) {
	result, err := h.escalationService.Sweep(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
