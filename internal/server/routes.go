package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/roundhouse/internal/aggregator"
	"github.com/zulandar/roundhouse/internal/beacon"
)

// registerRoutes sets up the fleet API on the Gin router.
func registerRoutes(router *gin.Engine, agg *aggregator.Aggregator) {
	router.POST("/api/heartbeat", handleHeartbeat(agg))
	router.GET("/api/status", handleStatus(agg))
	router.GET("/healthz", handleHealthz())
}

func handleHeartbeat(agg *aggregator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var b beacon.Beacon
		if err := c.ShouldBindJSON(&b); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if b.MachineID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "machine_id is required"})
			return
		}
		if !agg.Receive(b) {
			// A sequence that does not advance the stored record is a
			// duplicate or an out-of-order delivery, not a server fault.
			c.JSON(http.StatusConflict, gin.H{"error": "stale sequence"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"accepted": true})
	}
}

func handleStatus(agg *aggregator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, agg.Status(c.Request.Context()))
	}
}

func handleHealthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
