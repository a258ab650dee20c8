package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rdallagnolo/repo-fad-tracking/internal/config"
	"github.com/rdallagnolo/repo-fad-tracking/internal/handler"
	"github.com/rdallagnolo/repo-fad-tracking/internal/middleware"
)

// SetupRouter builds the viewer API. Generated artifacts are served
// read-only under /files.
func SetupRouter(cfg *config.Config, runner handler.Runner) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "FAD tracks viewer is running",
		})
	})

	r.Static("/files", cfg.OutDir)

	buoys := handler.NewBuoyHandler(runner)

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		api.GET("/summary", buoys.GetSummary)
		api.GET("/buoys", buoys.ListBuoys)
		api.GET("/tracks/:id", buoys.GetTrack)
		api.GET("/zones", buoys.ListZones)
		api.POST("/runs", middleware.RateLimit(6, time.Minute), buoys.TriggerRun)
	}

	return r
}
