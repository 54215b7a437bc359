package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"deposit-collector/internal/handler"
	"deposit-collector/pkg/monitor"
	"deposit-collector/pkg/validator"
)

// Handlers groups the API handlers mounted under /api/v1.
type Handlers struct {
	Address    *handler.AddressHandler
	Collection *handler.CollectionHandler
}

// NewHTTPRouter builds the gin engine with health, metrics, swagger and the API routes.
func NewHTTPRouter(h Handlers) *gin.Engine {
	monitor.Init()
	validator.Init()

	r := gin.Default()
	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		addresses := api.Group("/deposit_addresses")
		if h.Address != nil {
			addresses.POST("", h.Address.CreateDepositAddress)
		}
		if h.Collection != nil {
			addresses.GET("/:id", h.Collection.GetDepositAddress)
			addresses.POST("/:id/collect", h.Collection.EnqueueCollection)
		}
	}

	return r
}
