package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/autoleech/app/tasks"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

func NewHandler(scheduler tasks.SchedulerInterface, deliveries DeliveryHistory, version string) *Handler {
	return &Handler{
		scheduler:  scheduler,
		deliveries: deliveries,
		version:    version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feeds, err := h.scheduler.Feeds(); err == nil {
		health["feeds"] = len(feeds)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if deliveryStats, err := h.deliveries.GetStats(); err == nil {
		stats["deliveries"] = gin.H{
			"total":       deliveryStats.Total,
			"removed":     deliveryStats.Removed,
			"redelivered": deliveryStats.Redelivered,
		}
	} else {
		slog.Error("Database error", "operation", "get_delivery_stats", "error", err)
	}

	status, err := h.scheduler.Status(c.Request.Context())
	if err != nil {
		slog.Error("Status query failed", "error", err)
		stats["error"] = "Download client unavailable"
		c.JSON(http.StatusServiceUnavailable, stats)
		return
	}

	stats["active"] = status.Active
	stats["pending_delivery"] = status.PendingDelivery

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	feeds, err := h.scheduler.Feeds()
	if err != nil {
		slog.Error("Failed to read feed ledger", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read feeds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIAddFeed(c *gin.Context) {
	var req addFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": `Expected {"url": "<feed url>"}`,
		})
		return
	}

	result := h.scheduler.Subscribe(req.URL)
	response := gin.H{
		"url":     result.URL,
		"outcome": string(result.Outcome),
		"message": result.Message,
	}

	switch result.Outcome {
	case tasks.SubscribeAdded:
		c.JSON(http.StatusCreated, response)
	case tasks.SubscribeDuplicate:
		c.JSON(http.StatusOK, response)
	case tasks.SubscribeInvalid:
		c.JSON(http.StatusBadRequest, response)
	default:
		c.JSON(http.StatusInternalServerError, response)
	}
}

func (h *Handler) APIRefresh(c *gin.Context) {
	result, err := h.scheduler.Refresh(c.Request.Context())
	if err != nil {
		slog.Error("Refresh request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refresh failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result": gin.H{
			"sources":   result.Sources,
			"items":     result.Items,
			"submitted": result.Submitted,
			"skipped":   result.Skipped,
			"failed":    result.Failed,
		},
	})
}

func (h *Handler) APIListDeliveries(c *gin.Context) {
	limit := defaultDeliveryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxDeliveryLimit)
	}

	deliveries, err := h.deliveries.GetRecentDeliveries(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_deliveries", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]gin.H, 0, len(deliveries))
	for _, d := range deliveries {
		item := gin.H{
			"hash":         d.Hash,
			"name":         d.Name,
			"path":         d.Path,
			"size":         d.Size,
			"attempts":     d.Attempts,
			"delivered_at": d.DeliveredAt.Format(time.RFC3339),
			"removed":      d.RemovedAt != nil,
		}
		if d.RemovedAt != nil {
			item["removed_at"] = d.RemovedAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"deliveries": items,
		"total":      len(items),
	})
}
