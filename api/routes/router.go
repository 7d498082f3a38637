// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"courtly/internal/bookings"
	"courtly/internal/catalog"
	"courtly/internal/deposit"
	"courtly/internal/invoices"
	"courtly/internal/notifications"
	"courtly/internal/reconcile"
	"courtly/internal/shared/config"
	"courtly/internal/shared/database"
	"courtly/internal/shared/middleware"
	"courtly/internal/vouchers"
	"courtly/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher notifications.Publisher
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher) *Router {
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}
	return &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	if !r.config.IsProduction() {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group(r.config.GetAPIBasePath())
	auth := middleware.JWTAuthWithConfig(r.config)

	pg := r.db.PostgreSQL
	courts := catalog.NewCachedRepository(catalog.NewRepository(pg), cache.NewService(r.db.Redis))
	bookingRepo := bookings.NewRepository(pg)
	voucherRepo := vouchers.NewRepository(pg)
	invoiceRepo := invoices.NewRepository(pg)

	r.setupBookingRoutes(api, auth, bookingRepo, courts)
	r.setupInvoiceRoutes(api, auth, invoiceRepo)
	r.setupReconcileRoutes(api, auth, bookingRepo, voucherRepo, invoiceRepo, courts)
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "courtly-api",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "courtly-api",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timezone":    r.config.Booking.Timezone,
			"kafka":       r.config.Kafka.Enabled,
			"timestamp":   time.Now(),
		})
	})
}

// setupBookingRoutes configures booking create, read and cancel routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc, repo bookings.Repository, courts catalog.Repository) {
	service := bookings.NewService(repo, courts, r.publisher, r.config.Location())
	controller := bookings.NewController(service)
	bookings.SetupBookingRoutes(rg, controller, auth)
}

// setupInvoiceRoutes configures invoice state and refund routes
func (r *Router) setupInvoiceRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc, repo invoices.Repository) {
	ledger := invoices.NewLedger(repo, r.publisher)
	controller := invoices.NewController(ledger)
	invoices.SetupInvoiceRoutes(rg, controller, auth)
}

// setupReconcileRoutes configures pricing, edit and deposit routes
func (r *Router) setupReconcileRoutes(
	rg *gin.RouterGroup,
	auth gin.HandlerFunc,
	bookingRepo bookings.Repository,
	voucherRepo vouchers.Repository,
	invoiceRepo invoices.Repository,
	courts catalog.Repository,
) {
	policy := deposit.NewPolicy(deposit.Config{
		CancelWindow:    r.config.Booking.DepositCancelWindow,
		Ratio:           r.config.Booking.DepositRatio,
		RefreshInterval: r.config.Booking.DepositRefreshInterval,
	})

	service := reconcile.NewService(reconcile.Deps{
		Bookings:   bookingRepo,
		Vouchers:   voucherRepo,
		Invoices:   invoiceRepo,
		Catalog:    courts,
		UnitOfWork: reconcile.NewUnitOfWork(r.db.PostgreSQL, bookingRepo, voucherRepo),
		Policy:     policy,
		Publisher:  r.publisher,
		Location:   r.config.Location(),
	})
	controller := reconcile.NewController(service)
	reconcile.SetupReconcileRoutes(rg, controller, auth)
}
