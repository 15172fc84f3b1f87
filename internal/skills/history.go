package skills

import (
	"context"
	"fmt"

	"github.com/novafield/rewind/internal/engine"
	"github.com/novafield/rewind/internal/types"
)

// History exposes task and session boundaries plus the undo-redo operations.
// Its tools run outside any implicit task so that reconstruction work done
// during a revert is never recorded into a fresh task.
type History struct {
	engine *engine.Engine
}

// NewHistory creates the history skill provider.
func NewHistory(eng *engine.Engine) *History {
	return &History{engine: eng}
}

// Definition returns skill metadata.
func (h *History) Definition() types.Skill {
	return types.Skill{
		ID:          "history",
		Name:        "History",
		Description: "Task and session boundaries, undo, redo, and history inspection",
		Category:    types.CategoryHistory,
		Capabilities: []string{
			"tasks",
			"sessions",
			"undo",
			"redo",
		},
		Tools: []types.Tool{
			{
				ID:          "history.task.begin",
				Name:        "Begin Task",
				Description: "Open a named task, closing any task already open",
				Parameters: []types.Parameter{
					{Name: "tag", Type: "string", Description: "Short task tag", Required: true},
					{Name: "description", Type: "string", Description: "Human-readable description", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "history.task.end",
				Name:        "End Task",
				Description: "Close the open task and persist it",
				Returns:     "object",
			},
			{
				ID:          "history.session.begin",
				Name:        "Begin Session",
				Description: "Open a session that tags every task recorded while it is active",
				Parameters: []types.Parameter{
					{Name: "tag", Type: "string", Description: "Session tag", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "history.session.end",
				Name:        "End Session",
				Description: "Close the active session",
				Returns:     "boolean",
			},
			{
				ID:          "history.list",
				Name:        "List History",
				Description: "List recorded tasks and the redo stack",
				Returns:     "object",
			},
			{
				ID:          "history.sessions",
				Name:        "List Sessions",
				Description: "List sessions derived from recorded tasks",
				Returns:     "array",
			},
			{
				ID:          "history.undo_task",
				Name:        "Undo Task",
				Description: "Revert a recorded task and push it onto the redo stack",
				Parameters: []types.Parameter{
					{Name: "task_id", Type: "string", Description: "Task identifier", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "history.redo_task",
				Name:        "Redo Task",
				Description: "Re-apply a task from the redo stack",
				Parameters: []types.Parameter{
					{Name: "task_id", Type: "string", Description: "Task identifier", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "history.undo_session",
				Name:        "Undo Session",
				Description: "Revert every task recorded under a session, earliest state wins",
				Parameters: []types.Parameter{
					{Name: "session_id", Type: "string", Description: "Session identifier", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "history.delete_task",
				Name:        "Delete Task",
				Description: "Drop a task from history without reverting it",
				Parameters: []types.Parameter{
					{Name: "task_id", Type: "string", Description: "Task identifier", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "history.clear",
				Name:        "Clear History",
				Description: "Drop all recorded tasks and the redo stack",
				Returns:     "boolean",
			},
		},
	}
}

// Execute runs a history tool.
func (h *History) Execute(ctx context.Context, toolID string, params map[string]interface{}, sctx *types.Context) (*types.Result, error) {
	switch toolID {
	case "history.task.begin":
		return h.beginTask(params)
	case "history.task.end":
		return h.endTask()
	case "history.session.begin":
		return h.beginSession(params)
	case "history.session.end":
		h.engine.Recorder.EndSession()
		return Success(map[string]interface{}{"ended": true}), nil
	case "history.list":
		return h.list()
	case "history.sessions":
		return h.sessions()
	case "history.undo_task":
		return h.undoTask(params)
	case "history.redo_task":
		return h.redoTask(params)
	case "history.undo_session":
		return h.undoSession(params)
	case "history.delete_task":
		return h.deleteTask(params)
	case "history.clear":
		return h.clear()
	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID)), nil
	}
}

func (h *History) beginTask(params map[string]interface{}) (*types.Result, error) {
	tag, err := stringParam(params, "tag")
	if err != nil {
		return Failure(err.Error()), nil
	}
	description := optionalString(params, "description", tag)
	task := h.engine.Recorder.BeginTask(tag, description)
	return Success(map[string]interface{}{
		"task_id": task.ID,
		"tag":     task.Tag,
	}), nil
}

func (h *History) endTask() (*types.Result, error) {
	task := h.engine.Recorder.EndTask()
	if task == nil {
		return Failure("no open task"), nil
	}
	return Success(map[string]interface{}{
		"task_id":   task.ID,
		"snapshots": len(task.Snapshots),
	}), nil
}

func (h *History) beginSession(params map[string]interface{}) (*types.Result, error) {
	tag, err := stringParam(params, "tag")
	if err != nil {
		return Failure(err.Error()), nil
	}
	sessionID := h.engine.Recorder.BeginSession(tag)
	return Success(map[string]interface{}{"session_id": sessionID}), nil
}

func (h *History) list() (*types.Result, error) {
	tasks, undone := h.engine.History()
	return Success(map[string]interface{}{
		"tasks":       summarizeTasks(tasks),
		"undoneStack": summarizeTasks(undone),
	}), nil
}

func (h *History) sessions() (*types.Result, error) {
	infos := h.engine.Sessions()
	out := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		out = append(out, map[string]interface{}{
			"session_id": info.ID,
			"tasks":      info.TaskCount,
			"snapshots":  info.SnapshotCount,
			"started_at": info.StartedAt,
		})
	}
	return Success(map[string]interface{}{"sessions": out, "count": len(out)}), nil
}

func (h *History) undoTask(params map[string]interface{}) (*types.Result, error) {
	taskID, err := stringParam(params, "task_id")
	if err != nil {
		return Failure(err.Error()), nil
	}
	res, err := h.engine.UndoTask(taskID)
	if err != nil {
		return Failure(err.Error()), nil
	}
	return reversalResult(res), nil
}

func (h *History) redoTask(params map[string]interface{}) (*types.Result, error) {
	taskID, err := stringParam(params, "task_id")
	if err != nil {
		return Failure(err.Error()), nil
	}
	res, err := h.engine.RedoTask(taskID)
	if err != nil {
		return Failure(err.Error()), nil
	}
	return reversalResult(res), nil
}

func (h *History) undoSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := stringParam(params, "session_id")
	if err != nil {
		return Failure(err.Error()), nil
	}
	res, err := h.engine.UndoSession(sessionID)
	if err != nil {
		return Failure(err.Error()), nil
	}
	return reversalResult(res), nil
}

func (h *History) deleteTask(params map[string]interface{}) (*types.Result, error) {
	taskID, err := stringParam(params, "task_id")
	if err != nil {
		return Failure(err.Error()), nil
	}
	if err := h.engine.DeleteTask(taskID); err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{"deleted": taskID}), nil
}

func (h *History) clear() (*types.Result, error) {
	if err := h.engine.ClearHistory(); err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{"cleared": true}), nil
}

func reversalResult(res engine.Result) *types.Result {
	out := map[string]interface{}{
		"reverted": res.Reverted,
		"skipped":  res.Skipped,
	}
	if res.TaskID != "" {
		out["task_id"] = res.TaskID
	}
	if res.SessionID != "" {
		out["session_id"] = res.SessionID
	}
	return Success(out)
}

func summarizeTasks(tasks []*types.WorkflowTask) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		entry := map[string]interface{}{
			"task_id":   t.ID,
			"tag":       t.Tag,
			"timestamp": t.Timestamp,
			"snapshots": len(t.Snapshots),
		}
		if t.SessionID != "" {
			entry["session_id"] = t.SessionID
		}
		out = append(out, entry)
	}
	return out
}
