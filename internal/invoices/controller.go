package invoices

import (
	"fmt"
	"net/http"
	"strconv"

	"courtly/internal/shared/middleware"
	"courtly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	ledger Ledger
}

func NewController(ledger Ledger) *Controller {
	return &Controller{ledger: ledger}
}

// CreateInvoice handles POST /api/v1/invoices
// @Summary Append an invoice to a booking or voucher
// @Tags invoices
// @Accept json
// @Produce json
// @Param request body CreateInvoiceRequest true "Invoice"
// @Success 201 {object} response.StandardApiResponse
// @Router /invoices [post]
func (c *Controller) CreateInvoice(ctx *gin.Context) {
	var req CreateInvoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(ctx, "Invalid request body", err)
		return
	}

	invoice, err := c.ledger.Create(ctx.Request.Context(), req)
	if err != nil {
		response.RespondError(ctx, "Failed to create invoice", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusCreated, "Invoice created successfully", ToResponse(invoice))
}

// GetInvoice handles GET /api/v1/invoices/:id
// @Summary Get an invoice
// @Tags invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /invoices/{id} [get]
func (c *Controller) GetInvoice(ctx *gin.Context) {
	id, ok := invoiceID(ctx)
	if !ok {
		return
	}
	invoice, err := c.ledger.Get(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, "Failed to get invoice", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Invoice retrieved successfully", ToResponse(invoice))
}

// ListBookingInvoices handles GET /api/v1/bookings/:id/invoices
// @Summary List invoices attached to a booking and its vouchers
// @Tags invoices
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /bookings/{id}/invoices [get]
func (c *Controller) ListBookingInvoices(ctx *gin.Context) {
	bookingID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		response.RespondBadRequest(ctx, "Invalid booking ID", fmt.Errorf("id must be a positive integer"))
		return
	}
	list, err := c.ledger.ListForBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		response.RespondError(ctx, "Failed to list invoices", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Invoices retrieved successfully", gin.H{
		"invoices": ToResponses(list),
		"count":    len(list),
	})
}

// MarkAsPaid handles POST /api/v1/invoices/:id/pay
// @Summary Mark an UNPAID or PENDING invoice as paid
// @Tags invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /invoices/{id}/pay [post]
func (c *Controller) MarkAsPaid(ctx *gin.Context) {
	id, ok := invoiceID(ctx)
	if !ok {
		return
	}
	invoice, err := c.ledger.MarkAsPaid(ctx.Request.Context(), id, middleware.ActorFromContext(ctx))
	if err != nil {
		response.RespondError(ctx, "Failed to mark invoice as paid", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Invoice marked as paid", ToResponse(invoice))
}

// CancelInvoice handles POST /api/v1/invoices/:id/cancel
// @Summary Cancel a PAID invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param request body CancelInvoiceRequest true "Reason"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /invoices/{id}/cancel [post]
func (c *Controller) CancelInvoice(ctx *gin.Context) {
	id, ok := invoiceID(ctx)
	if !ok {
		return
	}
	var req CancelInvoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(ctx, "Invalid request body", err)
		return
	}

	invoice, err := c.ledger.Cancel(ctx.Request.Context(), id, req.Reason, middleware.ActorFromContext(ctx))
	if err != nil {
		response.RespondError(ctx, "Failed to cancel invoice", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Invoice cancelled successfully", ToResponse(invoice))
}

// ProcessRefund handles POST /api/v1/invoices/:id/refunds
// @Summary Refund part or all of a paid invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param request body RefundRequest true "Amount and reason"
// @Success 200 {object} response.StandardApiResponse
// @Failure 422 {object} response.StandardApiResponse
// @Router /invoices/{id}/refunds [post]
func (c *Controller) ProcessRefund(ctx *gin.Context) {
	id, ok := invoiceID(ctx)
	if !ok {
		return
	}
	var req RefundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(ctx, "Invalid request body", err)
		return
	}

	invoice, err := c.ledger.Refund(ctx.Request.Context(), id, req.Amount, req.Reason, middleware.ActorFromContext(ctx))
	if err != nil {
		response.RespondError(ctx, "Failed to process refund", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Refund processed successfully", ToResponse(invoice))
}

// ListRefunds handles GET /api/v1/invoices/:id/refunds
// @Summary Refund history of an invoice
// @Tags invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /invoices/{id}/refunds [get]
func (c *Controller) ListRefunds(ctx *gin.Context) {
	id, ok := invoiceID(ctx)
	if !ok {
		return
	}
	entries, err := c.ledger.ListRefunds(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, "Failed to list refunds", err)
		return
	}

	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	response.RespondSuccess(ctx, http.StatusOK, "Refunds retrieved successfully", RefundHistoryResponse{
		InvoiceID: id,
		Refunds:   entries,
		Total:     total,
	})
}

// AdjustInvoice handles PATCH /api/v1/invoices/:id
// @Summary Administrative override of payment method, notes or pre-payment status
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param request body AdjustPatch true "Patch"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /invoices/{id} [patch]
func (c *Controller) AdjustInvoice(ctx *gin.Context) {
	id, ok := invoiceID(ctx)
	if !ok {
		return
	}
	var patch AdjustPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		response.RespondBadRequest(ctx, "Invalid request body", err)
		return
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		response.RespondBadRequest(ctx, "Invalid request body", fmt.Errorf("unknown status %q", *patch.Status))
		return
	}

	invoice, err := c.ledger.Adjust(ctx.Request.Context(), id, patch, middleware.ActorFromContext(ctx))
	if err != nil {
		response.RespondError(ctx, "Failed to adjust invoice", err)
		return
	}
	response.RespondSuccess(ctx, http.StatusOK, "Invoice adjusted successfully", ToResponse(invoice))
}

func invoiceID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondBadRequest(ctx, "Invalid invoice ID", fmt.Errorf("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
