package reconcile

import (
	"courtly/internal/shared/constants"
	"courtly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupReconcileRoutes mounts pricing, edit and deposit routes under /bookings.
func SetupReconcileRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth)

	viewer := bookings.Group("")
	viewer.Use(middleware.RequireRoles(constants.ROLE_USER, constants.ROLE_STAFF, constants.ROLE_ADMIN))
	{
		viewer.GET("/:id/pricing", controller.GetPricing)
		viewer.GET("/:id/services", controller.GetServices)
		viewer.GET("/:id/deposit", controller.GetDeposit)
		viewer.GET("/:id/deposit/stream", controller.StreamDeposit)
	}

	staff := bookings.Group("")
	staff.Use(middleware.RequireRoles(constants.ROLE_STAFF, constants.ROLE_ADMIN))
	{
		staff.POST("/:id/edit/preview", controller.PreviewEdit)
		staff.PUT("/:id/edit", controller.SaveEdit)
	}
}

// Route definitions for reference:
//
// GET    /api/v1/bookings/:id/pricing                          - Court fee, service fee, already paid, difference
// GET    /api/v1/bookings/:id/services                         - Services grouped by voucher, with paid/locked flags
// GET    /api/v1/bookings/:id/deposit?payment_method=counter   - One deposit decision
// GET    /api/v1/bookings/:id/deposit/stream?payment_method=.. - SSE, re-evaluated every refresh interval
//
// POST   /api/v1/bookings/:id/edit/preview - Dry run
// PUT    /api/v1/bookings/:id/edit         - Save
// Request body: { "version": 3, "court_id": 2, "slots": [...],
//                 "actions": [{"op": "add_item", "branch_service_id": 5}, {"op": "remove_item", "index": 0}] }
