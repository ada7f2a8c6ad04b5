package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"
	"github.com/go-gitbridge/gitbridge/internal/metrics"
	"github.com/go-gitbridge/gitbridge/internal/tasks"
)

type TaskHandler struct {
	store    *tasks.Store
	executor *tasks.Executor
	metrics  metrics.Recorder
}

func NewTaskHandler(store *tasks.Store, executor *tasks.Executor, m metrics.Recorder) *TaskHandler {
	return &TaskHandler{store: store, executor: executor, metrics: m}
}

type createTaskRequest struct {
	Message                   string `json:"message" binding:"required"`
	SessionID                 string `json:"session_id"`
	ProjectPath               string `json:"project_path"`
	DangerouslySkipPermissions bool  `json:"dangerously_skip_permissions"`
}

// Create handles POST /api/v1/tasks. The task is accepted immediately
// and executed in the background; callers poll by id.
func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errdefs.BadRequestf("message is required"))
		return
	}

	task := h.store.Create(req.Message, req.SessionID, req.ProjectPath)
	h.metrics.RecordTaskCreated()
	h.executor.Dispatch(task.TaskID, req.DangerouslySkipPermissions)

	c.JSON(http.StatusAccepted, task)
}

// Get handles GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.store.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(c *gin.Context) {
	list := h.store.List()
	c.JSON(http.StatusOK, gin.H{
		"tasks": list,
		"count": len(list),
	})
}
