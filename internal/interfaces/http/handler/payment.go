package handler

import (
	billingapp "github.com/academy/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment recording and coverage reconciliation endpoints
type PaymentHandler struct {
	BaseHandler
	reconcileService *billingapp.PaymentReconcileService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(reconcileService *billingapp.PaymentReconcileService) *PaymentHandler {
	return &PaymentHandler{
		reconcileService: reconcileService,
	}
}

// Record registers a payment and reconciles it into the coverage ledger.
// Coverage-bearing categories (MONTHLY, TRANSPORT) require a coverage period
// and are prorated across every calendar month the period touches.
func (h *PaymentHandler) Record(c *gin.Context) {
	var req billingapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.reconcileService.RecordPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, payment)
}

// List returns a paginated list of payments
func (h *PaymentHandler) List(c *gin.Context) {
	var query billingapp.ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.reconcileService.ListPayments(c.Request.Context(), query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get returns a single payment by ID
func (h *PaymentHandler) Get(c *gin.Context) {
	paymentID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.reconcileService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// Update replaces a payment's reconciled fields. Coverage rows tagged by this
// payment are torn down and re-derived from the new values.
func (h *PaymentHandler) Update(c *gin.Context) {
	paymentID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req billingapp.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.reconcileService.UpdatePayment(c.Request.Context(), paymentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// Delete removes a payment and the coverage rows it last wrote
func (h *PaymentHandler) Delete(c *gin.Context) {
	paymentID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	if err := h.reconcileService.DeletePayment(c.Request.Context(), paymentID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// RebuildAll discards the entire coverage ledger and re-derives it from the
// payment history. This is the authoritative recovery path after drift.
func (h *PaymentHandler) RebuildAll(c *gin.Context) {
	result, err := h.reconcileService.RebuildAll(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RebuildMember re-derives the coverage ledger for a single member
func (h *PaymentHandler) RebuildMember(c *gin.Context) {
	memberID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	result, err := h.reconcileService.RebuildMember(c.Request.Context(), memberID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
