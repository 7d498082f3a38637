package bookings

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"courtly/internal/shared/middleware"
	"courtly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateBooking handles POST /api/v1/bookings
// @Summary Create a court booking
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "Court and slots"
// @Success 201 {object} response.StandardApiResponse
// @Router /bookings [post]
func (c *Controller) CreateBooking(ctx *gin.Context) {
	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(ctx, "Invalid request body", err)
		return
	}

	booking, err := c.service.CreateBooking(ctx.Request.Context(), req)
	if err != nil {
		response.RespondError(ctx, "Failed to create booking", err)
		return
	}

	response.RespondSuccess(ctx, http.StatusCreated, "Booking created successfully", ToResponse(booking, time.Now()))
}

// GetBooking handles GET /api/v1/bookings/:id
// @Summary Get a booking with its slots
// @Tags bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /bookings/{id} [get]
func (c *Controller) GetBooking(ctx *gin.Context) {
	bookingID, err := ParseID(ctx, "id")
	if err != nil {
		response.RespondBadRequest(ctx, "Invalid booking ID", err)
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		response.RespondError(ctx, "Failed to get booking", err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Booking retrieved successfully", ToResponse(booking, time.Now()))
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
// @Summary Cancel a booking that is neither paid nor cancelled
// @Tags bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /bookings/{id}/cancel [post]
func (c *Controller) CancelBooking(ctx *gin.Context) {
	bookingID, err := ParseID(ctx, "id")
	if err != nil {
		response.RespondBadRequest(ctx, "Invalid booking ID", err)
		return
	}

	booking, err := c.service.CancelBooking(ctx.Request.Context(), bookingID, middleware.ActorFromContext(ctx))
	if err != nil {
		response.RespondError(ctx, "Failed to cancel booking", err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Booking cancelled successfully", ToResponse(booking, time.Now()))
}

// ParseID reads a positive integer path parameter.
func ParseID(ctx *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}
