package reconcile

import (
	"io"
	"net/http"
	"time"

	"courtly/internal/bookings"
	"courtly/internal/deposit"
	"courtly/internal/shared/middleware"
	"courtly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
	now     func() time.Time
}

func NewController(service Service) *Controller {
	return &Controller{service: service, now: time.Now}
}

// GetPricing handles GET /api/v1/bookings/:id/pricing
// @Summary Price the stored booking against collected invoices
// @Tags reconcile
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /bookings/{id}/pricing [get]
func (c *Controller) GetPricing(ctx *gin.Context) {
	bookingID, err := bookings.ParseID(ctx, "id")
	if err != nil {
		response.RespondBadRequest(ctx, "Invalid booking ID", err)
		return
	}

	quote, err := c.service.Quote(ctx.Request.Context(), bookingID)
	if err != nil {
		response.RespondError(ctx, "Failed to price booking", err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Pricing calculated successfully", quote)
}

// PreviewEdit handles POST /api/v1/bookings/:id/edit/preview
// @Summary Dry-run a booking edit and return the new balance
// @Tags reconcile
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body EditRequest true "Edit"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /bookings/{id}/edit/preview [post]
func (c *Controller) PreviewEdit(ctx *gin.Context) {
	bookingID, req, ok := c.bindEdit(ctx)
	if !ok {
		return
	}

	result, err := c.service.Preview(ctx.Request.Context(), bookingID, req)
	if err != nil {
		response.RespondError(ctx, "Failed to preview edit", err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Edit previewed successfully", result)
}

// SaveEdit handles PUT /api/v1/bookings/:id/edit
// @Summary Save a booking edit
// @Description Court time and services are written in one transaction guarded by the booking version.
// @Tags reconcile
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body EditRequest true "Edit"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /bookings/{id}/edit [put]
func (c *Controller) SaveEdit(ctx *gin.Context) {
	bookingID, req, ok := c.bindEdit(ctx)
	if !ok {
		return
	}

	result, err := c.service.Save(ctx.Request.Context(), bookingID, req, middleware.ActorFromContext(ctx))
	if err != nil {
		response.RespondError(ctx, "Failed to save edit", err)
		return
	}

	message := "Booking updated successfully"
	if !result.Saved {
		message = "No changes to save"
	}
	response.RespondSuccess(ctx, http.StatusOK, message, result)
}

// GetServices handles GET /api/v1/bookings/:id/services
// @Summary List booking services grouped by voucher with lock flags
// @Tags reconcile
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /bookings/{id}/services [get]
func (c *Controller) GetServices(ctx *gin.Context) {
	bookingID, err := bookings.ParseID(ctx, "id")
	if err != nil {
		response.RespondBadRequest(ctx, "Invalid booking ID", err)
		return
	}

	view, err := c.service.Services(ctx.Request.Context(), bookingID)
	if err != nil {
		response.RespondError(ctx, "Failed to get services", err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Services retrieved successfully", view)
}

// GetDeposit handles GET /api/v1/bookings/:id/deposit
// @Summary Decide whether a deposit is due now
// @Tags reconcile
// @Produce json
// @Param id path int true "Booking ID"
// @Param payment_method query string true "counter, online or bank_transfer"
// @Success 200 {object} response.StandardApiResponse
// @Router /bookings/{id}/deposit [get]
func (c *Controller) GetDeposit(ctx *gin.Context) {
	bookingID, query, ok := c.bindDeposit(ctx)
	if !ok {
		return
	}

	decision, err := c.service.Deposit(ctx.Request.Context(), bookingID, query.PaymentMethod, c.now())
	if err != nil {
		response.RespondError(ctx, "Failed to evaluate deposit", err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Deposit evaluated successfully", decision)
}

// StreamDeposit handles GET /api/v1/bookings/:id/deposit/stream
// @Summary Stream deposit decisions as server-sent events
// @Description Emits a "deposit" event on connect and on every refresh interval until the slot starts.
// @Tags reconcile
// @Produce text/event-stream
// @Param id path int true "Booking ID"
// @Param payment_method query string true "counter, online or bank_transfer"
// @Router /bookings/{id}/deposit/stream [get]
func (c *Controller) StreamDeposit(ctx *gin.Context) {
	bookingID, query, ok := c.bindDeposit(ctx)
	if !ok {
		return
	}

	decisions, err := c.service.WatchDeposit(ctx.Request.Context(), bookingID, query.PaymentMethod)
	if err != nil {
		response.RespondError(ctx, "Failed to watch deposit", err)
		return
	}

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")

	ctx.Stream(func(w io.Writer) bool {
		d, open := <-decisions
		if !open {
			ctx.SSEvent("done", gin.H{"booking_id": bookingID})
			return false
		}
		ctx.SSEvent(eventName(d), d)
		return true
	})
}

func eventName(d deposit.Decision) string {
	if d.Flipped {
		return "deposit.flipped"
	}
	return "deposit"
}

func (c *Controller) bindEdit(ctx *gin.Context) (int64, EditRequest, bool) {
	var req EditRequest
	bookingID, err := bookings.ParseID(ctx, "id")
	if err != nil {
		response.RespondBadRequest(ctx, "Invalid booking ID", err)
		return 0, req, false
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(ctx, "Invalid request body", err)
		return 0, req, false
	}
	return bookingID, req, true
}

func (c *Controller) bindDeposit(ctx *gin.Context) (int64, DepositQuery, bool) {
	var query DepositQuery
	bookingID, err := bookings.ParseID(ctx, "id")
	if err != nil {
		response.RespondBadRequest(ctx, "Invalid booking ID", err)
		return 0, query, false
	}
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondBadRequest(ctx, "Invalid payment method", err)
		return 0, query, false
	}
	return bookingID, query, true
}
