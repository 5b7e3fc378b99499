package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"nexto/store"
)

type TaskHandler struct {
	store store.Store
	log   *slog.Logger
}

func NewTaskHandler(s store.Store, log *slog.Logger) *TaskHandler {
	return &TaskHandler{store: s, log: log}
}

func (h *TaskHandler) Register(r gin.IRouter) {
	r.GET("/tasks", h.List)
	r.GET("/tasks/:id", h.Get)
	r.POST("/tasks", h.Create)
	r.PUT("/tasks/:id", h.Update)
	r.DELETE("/tasks/:id", h.Delete)
}

// GET /tasks - List all tasks, newest first
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.store.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GET /tasks/:id - Fetch a single task
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// POST /tasks - Add a new task
func (h *TaskHandler) Create(c *gin.Context) {
	var body createTaskIn
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	in, err := body.toInput()
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	task, err := h.store.Insert(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.log.Debug("task created", "id", task.ID)
	c.JSON(http.StatusCreated, task)
}

// PUT /tasks/:id - Update any subset of a task's fields
func (h *TaskHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	patch, err := decodePatch(body)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	task, err := h.store.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DELETE /tasks/:id - Delete a task
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
