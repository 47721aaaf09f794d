package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterDeps collects everything the router wires together.
type RouterDeps struct {
	ServiceName string
	Payments    *PaymentHandler
	Config      *ConfigHandler
	Static      *StaticHandler
	// Metrics is the Prometheus scrape handler; nil disables /metrics.
	Metrics http.Handler
}

// NewRouter builds the gin engine serving the API and the static assets.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(RequestID())
	r.Use(RequestLogger())
	r.Use(HTTPMetrics())

	r.GET("/health", HealthCheck)
	r.GET("/config", deps.Config.GetConfig)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := r.Group("/api/payments")
	{
		api.POST("/card", deps.Payments.CardPayment)
		api.POST("/ideal", deps.Payments.IdealPayment)
		api.POST("/wallet", deps.Payments.WalletPayment)
		api.POST("/saved-card", deps.Payments.SavedCardPayment)
	}

	r.NoRoute(deps.Static.Serve)

	return r
}
