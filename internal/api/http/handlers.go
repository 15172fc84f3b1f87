// Package http contains the gin handlers for the rewind API.
package http

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/novafield/rewind/internal/engine"
	"github.com/novafield/rewind/internal/shared/id"
	"github.com/novafield/rewind/internal/skills"
	"github.com/novafield/rewind/internal/types"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	registry *skills.Registry
	engine   *engine.Engine

	// dispatch serializes skill execution; the scene graph and history
	// document assume a single writer.
	dispatch sync.Mutex
}

// NewHandlers creates a new handler set.
func NewHandlers(registry *skills.Registry, eng *engine.Engine) *Handlers {
	return &Handlers{registry: registry, engine: eng}
}

// Root handles health check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "rewind",
		"version": "0.2.0",
	})
}

// Health handles detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	tasks, undone := h.engine.History()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"skill_registry": h.registry.Stats(),
		"history": gin.H{
			"tasks":  len(tasks),
			"undone": len(undone),
		},
		"open_task":      h.engine.Recorder.OpenTask() != nil,
		"active_session": h.engine.Recorder.ActiveSession(),
	})
}

// ListSkills lists registered skills, optionally filtered by category.
func (h *Handlers) ListSkills(c *gin.Context) {
	var category *types.Category
	if raw := c.Query("category"); raw != "" {
		cat := types.Category(raw)
		category = &cat
	}
	defs := h.registry.List(category)
	c.JSON(http.StatusOK, gin.H{
		"skills": defs,
		"count":  len(defs),
	})
}

// ExecuteSkill executes a skill tool. Scene and asset tools run inside the
// open task, or a throwaway task named after the tool when none is open.
func (h *Handlers) ExecuteSkill(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sctx := &types.Context{
		RequestID: string(id.NewRequestID()),
		Actor:     req.Actor,
	}

	h.dispatch.Lock()
	defer h.dispatch.Unlock()

	var result *types.Result
	var err error
	run := func() error {
		result, err = h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, sctx)
		return nil
	}
	if mutating(req.ToolID) {
		_ = h.engine.WithTask(req.ToolID, "skill call "+req.ToolID, run)
	} else {
		_ = run()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// History returns the recorded task list and redo stack.
func (h *Handlers) History(c *gin.Context) {
	tasks, undone := h.engine.History()
	c.JSON(http.StatusOK, gin.H{
		"tasks":       tasks,
		"undoneStack": undone,
	})
}

// Sessions returns session summaries derived from the task list.
func (h *Handlers) Sessions(c *gin.Context) {
	sessions := h.engine.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// UndoTask reverts one recorded task.
func (h *Handlers) UndoTask(c *gin.Context) {
	h.reversal(c, func(id string) (engine.Result, error) {
		return h.engine.UndoTask(id)
	})
}

// RedoTask re-applies one task from the redo stack.
func (h *Handlers) RedoTask(c *gin.Context) {
	h.reversal(c, func(id string) (engine.Result, error) {
		return h.engine.RedoTask(id)
	})
}

// UndoSession reverts every task recorded under a session.
func (h *Handlers) UndoSession(c *gin.Context) {
	h.reversal(c, func(id string) (engine.Result, error) {
		return h.engine.UndoSession(id)
	})
}

func (h *Handlers) reversal(c *gin.Context, fn func(string) (engine.Result, error)) {
	targetID := c.Param("id")
	if targetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return
	}

	h.dispatch.Lock()
	res, err := fn(targetID)
	h.dispatch.Unlock()

	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteTask drops a task from history without reverting it.
func (h *Handlers) DeleteTask(c *gin.Context) {
	taskID := c.Param("id")

	h.dispatch.Lock()
	err := h.engine.DeleteTask(taskID)
	h.dispatch.Unlock()

	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": taskID})
}

// ClearHistory drops all recorded tasks and the redo stack.
func (h *Handlers) ClearHistory(c *gin.Context) {
	h.dispatch.Lock()
	err := h.engine.ClearHistory()
	h.dispatch.Unlock()

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// mutating reports whether a tool records into the history. History tools
// manage tasks themselves and must not run inside an implicit one.
func mutating(toolID string) bool {
	return strings.HasPrefix(toolID, "scene.") || strings.HasPrefix(toolID, "asset.")
}
