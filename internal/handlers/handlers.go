package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"inbox-rpa/internal/scheduler"
	"inbox-rpa/internal/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store     *store.OutcomeStore
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(st *store.OutcomeStore, s *scheduler.Scheduler) *Handlers {
	return &Handlers{store: st, scheduler: s}
}

// SetupRoutes registers all routes on the router
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/stats", h.GetStats)
		api.GET("/records", h.GetRecentRecords)
		api.POST("/run", h.RunCycle)
		api.GET("/scheduler/status", h.SchedulerStatus)
		api.GET("/config/:key", h.GetConfig)
		api.PUT("/config/:key", h.SetConfig)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"scheduler": "stopped",
	}

	if h.scheduler.IsRunning() {
		response["scheduler"] = "running"
		response["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}

// GetStats returns the outcome store's aggregate statistics
func (h *Handlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Statistics())
}

// GetRecentRecords returns the newest outcomes across both tables
func (h *Handlers) GetRecentRecords(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	records := h.store.RecentRecords(limit)
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

// RunCycle triggers a single triage cycle
func (h *Handlers) RunCycle(c *gin.Context) {
	go h.scheduler.RunOnce()
	c.JSON(http.StatusAccepted, gin.H{"status": "cycle triggered"})
}

// SchedulerStatus reports the scheduler state
func (h *Handlers) SchedulerStatus(c *gin.Context) {
	status := gin.H{"running": h.scheduler.IsRunning()}
	if h.scheduler.IsRunning() {
		status["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
		status["last_run"] = h.scheduler.GetLastRun().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, status)
}

// GetConfig reads one operator configuration entry
func (h *Handlers) GetConfig(c *gin.Context) {
	key := c.Param("key")
	value, ok := h.store.GetConfig(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "config key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// SetConfig writes one operator configuration entry
func (h *Handlers) SetConfig(c *gin.Context) {
	key := c.Param("key")

	var body struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !h.store.SetConfig(key, body.Value) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store config"})
		return
	}

	logrus.Infof("Config updated: %s", key)
	c.JSON(http.StatusOK, gin.H{"key": key, "value": body.Value})
}
