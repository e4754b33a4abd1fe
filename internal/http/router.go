// README: HTTP route registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"phlebo/internal/http/handlers"
	"phlebo/internal/http/middleware"
	"phlebo/internal/logger"
	"phlebo/internal/modules/assignment"
	"phlebo/internal/modules/collector"
	"phlebo/internal/modules/dispatch"
	"phlebo/internal/modules/location"
	"phlebo/internal/modules/matching"
	"phlebo/internal/modules/order"
)

// Geocoder aliases the handler-level interface so callers wire it without
// importing the handlers package.
type Geocoder = handlers.Geocoder

type RouterDeps struct {
	Orders     *order.Service
	Collectors *collector.Service
	Locations  *location.Service
	Matching   *matching.Engine
	Assignment *assignment.Service
	View       *dispatch.View
	Geocoder   handlers.Geocoder
	Log        logger.ILogger
}

func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Geocoder)
	collectorHandler := handlers.NewCollectorHandler(deps.Collectors, deps.Locations)
	dispatchHandler := handlers.NewDispatchHandler(deps.Orders, deps.Matching, deps.Assignment, deps.View)

	api := r.Group("/api", middleware.Identity())

	orders := api.Group("/orders")
	orders.POST("", middleware.RequireRole("customer", "admin"), orderHandler.Create)
	orders.GET("/:id", orderHandler.Get)
	orders.POST("/:id/cancel", middleware.RequireRole("customer", "admin"), orderHandler.Cancel)

	admin := api.Group("/admin", middleware.RequireRole("admin"))
	admin.POST("/collectors", collectorHandler.Create)
	admin.GET("/collectors/:id", collectorHandler.Get)
	admin.PUT("/collectors/:id", collectorHandler.Update)
	admin.POST("/collectors/:id/deactivate", collectorHandler.Deactivate)
	admin.GET("/orders/:id/candidates", dispatchHandler.Candidates)
	admin.POST("/orders/:id/assign", dispatchHandler.Assign)
	admin.POST("/orders/:id/reassign", dispatchHandler.Reassign)
	admin.POST("/orders/:id/unassign", dispatchHandler.Unassign)
	admin.POST("/orders/:id/void", orderHandler.Void)
	admin.POST("/orders/:id/confirm", orderHandler.Confirm)

	col := api.Group("/collector", middleware.RequireRole("collector"))
	col.PUT("/location", collectorHandler.UpdateLocation)
	col.GET("/worklist", dispatchHandler.Worklist)
	col.GET("/summary", dispatchHandler.Summary)
	col.POST("/orders/:id/reached", orderHandler.MarkReached)
	col.POST("/orders/:id/collected", orderHandler.MarkCollected)
	col.POST("/orders/:id/handed-over", orderHandler.MarkHandedOver)

	return r
}
