package invoices

import (
	"courtly/internal/shared/constants"
	"courtly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupInvoiceRoutes configures invoice ledger routes
func SetupInvoiceRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	staff := middleware.RequireRoles(constants.ROLE_STAFF, constants.ROLE_ADMIN)

	invoices := rg.Group("/invoices")
	invoices.Use(auth)
	{
		invoices.GET("/:id", middleware.RequireRoles(constants.ROLE_USER, constants.ROLE_STAFF, constants.ROLE_ADMIN), controller.GetInvoice)
		invoices.GET("/:id/refunds", staff, controller.ListRefunds)

		invoices.POST("", staff, controller.CreateInvoice)
		invoices.POST("/:id/pay", staff, controller.MarkAsPaid)
		invoices.POST("/:id/cancel", staff, controller.CancelInvoice)
		invoices.POST("/:id/refunds", staff, controller.ProcessRefund)
		invoices.PATCH("/:id", middleware.RequireAdmin(), controller.AdjustInvoice)
	}

	bookings := rg.Group("/bookings")
	bookings.Use(auth, staff)
	{
		bookings.GET("/:id/invoices", controller.ListBookingInvoices)
	}
}
