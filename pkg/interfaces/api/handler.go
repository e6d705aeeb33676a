// Package api exposes the manufacturing order lifecycle over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/application/services/manufacturing"
	"github.com/vsinha/shopfloor/pkg/infrastructure/events"
	"github.com/vsinha/shopfloor/pkg/infrastructure/realtime"
)

// Check reports whether a dependency is usable
type Check func(ctx context.Context) error

// Options configures the router
type Options struct {
	Mode         string
	AllowOrigins []string
	Version      string
	// Ready lists the dependencies probed by /health/ready
	Ready map[string]Check
}

// Handler serves the manufacturing API
type Handler struct {
	svc    *manufacturing.Service
	events events.EventStore
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewHandler(svc *manufacturing.Service, store events.EventStore, hub *realtime.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, events: store, hub: hub, logger: logger}
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(h *Handler, opts Options) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(h.logger))

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, HeaderTenant, HeaderOperator, HeaderRequestID)
	corsConfig.ExposeHeaders = []string{HeaderRequestID, "Content-Disposition"}
	r.Use(cors.New(corsConfig))

	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", readiness(opts.Ready))
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": opts.Version})
	})
	if h.hub != nil {
		r.GET("/ws", Tenant(), h.ServeWS)
	}

	v1 := r.Group("/api/v1/mfg")
	v1.Use(gzip.Gzip(gzip.DefaultCompression))
	v1.Use(Tenant())
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", h.CreateOrder)
			orders.GET("", h.ListOrders)
			orders.GET("/:id", h.GetOrder)
			orders.POST("/:id/confirm", h.ConfirmOrder)
			orders.POST("/:id/start", h.StartOrder)
			orders.POST("/:id/complete", h.CompleteOrder)
			orders.POST("/:id/cancel", h.CancelOrder)
			orders.POST("/:id/split", h.SplitOrder)
			orders.GET("/:id/availability", h.CheckAvailability)
			orders.POST("/:id/reserve", h.ReserveMaterials)
			orders.POST("/:id/release", h.ReleaseMaterials)
			orders.GET("/:id/costing", h.CostSummary)
			orders.GET("/:id/costing/export", h.ExportCosting)
		}

		workOrders := v1.Group("/work-orders")
		{
			workOrders.GET("/:id", h.GetWorkOrder)
			workOrders.POST("/:id/start", h.StartWorkOrder)
			workOrders.POST("/:id/pause", h.PauseWorkOrder)
			workOrders.POST("/:id/resume", h.ResumeWorkOrder)
			workOrders.POST("/:id/complete", h.CompleteWorkOrder)
			workOrders.POST("/:id/scrap", h.RecordScrap)
		}

		v1.GET("/workcenters/:id/oee", h.OEE)
		v1.GET("/events", h.ListEvents)
	}
	return r
}

func readiness(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"checks": results})
	}
}

// ListEvents replays the tenant's journaled events from a zero-based journal position
func (h *Handler) ListEvents(c *gin.Context) {
	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil || from < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": CodeBadRequest, "message": "from must be a non-negative integer"})
		return
	}

	all, err := h.events.ReadAllEvents(from)
	if err != nil {
		fail(c, err)
		return
	}
	tenantID := actorOf(c).TenantID
	items := make([]events.Event, 0, len(all))
	for _, e := range all {
		if e.TenantID() == tenantID {
			items = append(items, e)
		}
	}
	ok(c, gin.H{"items": items, "next": from + len(all)})
}

// ServeWS streams the tenant's events over a websocket
func (h *Handler) ServeWS(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request, actorOf(c).TenantID)
}
