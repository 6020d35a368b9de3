package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/tasks"
)

// TasksController handles task queue endpoints.
type TasksController struct {
	scans  ScanRunner
	status TaskStatusReader
}

func NewTasksController(scans ScanRunner, status TaskStatusReader) *TasksController {
	return &TasksController{scans: scans, status: status}
}

// RunOverdueScan handles POST /api/tasks/overdue-scan/run
func (tc *TasksController) RunOverdueScan(c *gin.Context) {
	taskID, err := tc.scans.RunNow("api")
	if err != nil {
		respondInternalError(c, err, "enqueue overdue scan")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": taskID,
		"type":    "overdue_scan",
		"message": "task enqueued",
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.status.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}
