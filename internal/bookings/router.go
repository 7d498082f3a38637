package bookings

import (
	"courtly/internal/shared/constants"
	"courtly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth, middleware.RequireRoles(constants.ROLE_USER, constants.ROLE_STAFF, constants.ROLE_ADMIN))
	{
		bookings.POST("", controller.CreateBooking)            // POST /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)            // GET /api/v1/bookings/:id
		bookings.POST("/:id/cancel", controller.CancelBooking) // POST /api/v1/bookings/:id/cancel
	}
}

// Route definitions for reference:
//
// POST   /api/v1/bookings                 - Create a booking
// Request body: { "court_id": 1, "customer_id": 7, "slots": [{"start_time": "...", "end_time": "..."}] }
//
// GET    /api/v1/bookings/:id             - Get booking with slots
//
// POST   /api/v1/bookings/:id/cancel      - Cancel (rejected for PAID and CANCELLED)
