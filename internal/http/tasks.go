package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/tasks"
)

// TasksController lets administrators trigger maintenance tasks by hand.
type TasksController struct {
	runner        TaskRunner
	retentionDays int
}

// NewTasksController creates a new TasksController. retentionDays is the
// default for archive_logs runs that do not set one.
func NewTasksController(runner TaskRunner, retentionDays int) *TasksController {
	return &TasksController{runner: runner, retentionDays: retentionDays}
}

// RunTaskRequest is the optional body of a task run request.
type RunTaskRequest struct {
	RetentionDays int `json:"retention_days,omitempty" form:"retention_days"`
}

// ListTaskTypes handles GET /api/admin/tasks/types.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"task_types": tasks.Types,
	})
}

// GetTaskStatus handles GET /api/admin/tasks/:id.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.runner.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunTask handles POST /api/admin/tasks/:type/run.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid task parameters")
			return
		}
	}
	if req.RetentionDays <= 0 {
		req.RetentionDays = tc.retentionDays
	}

	task, err := tasks.NewTask(taskType, req.RetentionDays)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	ids, err := tc.runner.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": ids[0],
		"type":    taskType,
		"message": "task enqueued",
	})
}
