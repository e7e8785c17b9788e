// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carhire/internal/http/handlers"
	"carhire/internal/http/middleware"
)

const adminRole = "admin"

func registerRoutes(r *gin.Engine, s *Server) {
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(s.verifier))

	quoteHandler := handlers.NewQuoteHandler(s.quote, s.quoteTimeout)
	api.POST("/quotes/calculate", quoteHandler.Calculate)
	api.POST("/quotes", quoteHandler.Save)
	api.GET("/quotes", quoteHandler.List)
	api.GET("/quotes/:id", quoteHandler.Get)
	api.POST("/quotes/:id/status", quoteHandler.UpdateStatus)

	availabilityHandler := handlers.NewAvailabilityHandler(s.availability, s.quoteTimeout)
	api.GET("/availability", availabilityHandler.Get)

	pricingHandler := handlers.NewPricingHandler(s.pricing)
	api.GET("/pricing", pricingHandler.Get)
	admin := api.Group("/pricing", middleware.RequireRole(adminRole))
	admin.PUT("/config", pricingHandler.UpdateConfig)
	admin.PUT("/categories/:id", pricingHandler.UpdateCategory)
}
