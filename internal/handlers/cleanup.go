package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) GetCleanupStats(c *gin.Context) {
	stats, err := h.cleaner.UsageStats(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h HandlerSet) FindUnusedImages(c *gin.Context) {
	unused, err := h.cleaner.FindUnused(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(unused), "images": unused})
}

func (h HandlerSet) DeleteUnusedImages(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.cleaner.DeleteUnused(ctx)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.imageCache.Flush(ctx)

	c.JSON(http.StatusOK, gin.H{
		"message": "cleanup completed",
		"total":   report.Total,
		"deleted": report.Deleted,
	})
}

func (h HandlerSet) RunFullCleanup(c *gin.Context) {
	ctx := c.Request.Context()

	initial, err := h.cleaner.UsageStats(ctx)
	if err != nil {
		h.serverError(c, err)
		return
	}

	report, err := h.cleaner.DeleteUnused(ctx)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.imageCache.Flush(ctx)

	final, err := h.cleaner.UsageStats(ctx)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "full cleanup completed",
		"initialStats":  initial,
		"finalStats":    final,
		"deletedImages": report.Deleted,
		"totalDeleted":  report.Total,
	})
}
