package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"oftaclinic/api/internal/jobs"
)

func (h HandlerSet) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.scheduler.Status()})
}

func (h HandlerSet) UpdateTaskStatus(c *gin.Context) {
	var body struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled must be a boolean"})
		return
	}

	name := c.Param("name")
	task, err := h.scheduler.SetTaskEnabled(name, *body.Enabled)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownTask) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown task: %s", name)})
			return
		}
		h.serverError(c, err)
		return
	}

	state := "disabled"
	if task.Enabled {
		state = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("task %s %s", name, state),
		"task":    task,
	})
}

func (h HandlerSet) RunTask(c *gin.Context) {
	name := c.Param("name")
	result, err := h.scheduler.RunTask(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownTask) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown task: %s", name)})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("task %s executed", name),
		"result":  result,
	})
}
