package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studydesk-backend/internal/http/response"
	"github.com/yungbote/studydesk-backend/internal/services"
)

var errCompletedOnly = errors.New("bulk delete requires completed=true")

type TaskHandler struct {
	tasks services.TaskService
}

func NewTaskHandler(tasks services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// GET /api/tasks
func (h *TaskHandler) Board(c *gin.Context) {
	board, err := h.tasks.Board(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, board)
}

// POST /api/tasks
func (h *TaskHandler) Add(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
		Icon  string `json:"icon"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	t, err := h.tasks.Add(c.Request.Context(), req.Title, req.Icon)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"task": t})
}

// GET /api/quick-tasks
func (h *TaskHandler) QuickTasks(c *gin.Context) {
	response.RespondOK(c, gin.H{"quick_tasks": services.QuickTasks})
}

// POST /api/quick-tasks/:key
func (h *TaskHandler) QuickAdd(c *gin.Context) {
	t, err := h.tasks.QuickAdd(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"task": t})
}

// POST /api/tasks/:id/toggle
func (h *TaskHandler) Toggle(c *gin.Context) {
	t, err := h.tasks.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"task": t})
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/tasks?completed=true
func (h *TaskHandler) ClearCompleted(c *gin.Context) {
	if ok, _ := strconv.ParseBool(c.Query("completed")); !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", errCompletedOnly)
		return
	}
	n, err := h.tasks.ClearCompleted(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": n})
}
