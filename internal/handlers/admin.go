package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bandroom/internal/lookup"
)

// AdminHandler handles cache maintenance requests. Unlike the request-serving
// endpoints, these surface storage errors to the caller.
type AdminHandler struct {
	lookupService *lookup.LookupService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(lookupService *lookup.LookupService) *AdminHandler {
	return &AdminHandler{lookupService: lookupService}
}

// SweepCache handles POST /api/v1/admin/cache/sweep. An optional
// max_age_hours query parameter overrides the policy's retention window.
func (h *AdminHandler) SweepCache(c *gin.Context) {
	var maxAge time.Duration
	if raw := c.Query("max_age_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "max_age_hours must be a positive integer",
			})
			return
		}
		maxAge = time.Duration(hours) * time.Hour
	}

	deleted, err := h.lookupService.SweepExpired(c.Request.Context(), maxAge)
	if err != nil {
		slog.Error("Cache sweep failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Cache sweep failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
	})
}

// CacheStats handles GET /api/v1/admin/cache/stats
func (h *AdminHandler) CacheStats(c *gin.Context) {
	stats, err := h.lookupService.CacheStats(c.Request.Context())
	if err != nil {
		slog.Error("Failed to collect cache stats", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to collect cache statistics",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
