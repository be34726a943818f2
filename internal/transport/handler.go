package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KasraH/persian-ocr-telegram-bot/internal/pool"
)

// NewHandler builds the admin HTTP surface: a liveness probe and a
// read-only view of the model pool counters.
func NewHandler(registry *pool.Registry) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", healthCheck)
	r.GET("/stats", poolStats(registry))

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func poolStats(registry *pool.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		identities, cursor := registry.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"cursor": cursor,
			"models": identities,
		})
	}
}
