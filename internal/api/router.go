package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/excellence-awards/nomination-flow/internal/handlers"
	"github.com/excellence-awards/nomination-flow/internal/telemetry"
)

func NewRouter(nomHandler *handlers.NominationHandler, retHandler *handlers.ReturnHandler, simulated bool) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "nomination-flow"})
	})

	// Nomination flow routes
	r.POST("/api/nominations", nomHandler.SubmitNomination)
	r.POST("/api/nominations/:id/checkout", nomHandler.BeginCheckout)
	r.GET("/api/nominations/:id/state", nomHandler.GetFlowState)

	// Provider return leg
	r.GET("/api/payments/return", retHandler.PaymentReturn)
	r.POST("/api/payments/return", retHandler.PaymentReturn)

	// The simulated hosted page exists only outside production
	if simulated {
		r.POST("/api/payments/simulated", retHandler.SimulatedPay)
	}

	return r
}
