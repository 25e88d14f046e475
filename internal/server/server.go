package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"paystack-service/internal/metrics"
)

func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(logger), Metrics())

	router.GET("/liveness", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/paystack")
	api.POST("/initialize", h.Initialize)
	api.POST("/mobile", h.MobilePayment)
	api.POST("/verify", h.Verify)
	api.POST("/webhook", h.Webhook)
	api.GET("/callback", h.Callback)
	api.POST("/callback", h.Callback)

	router.POST("/webhook/paystack", h.Webhook)

	return router
}
