// Package engine implements the snapshot-based, task/session-scoped
// undo-redo engine. It sits on top of the live scene graph and asset
// store, captures pre-mutation state into workflow tasks, and replays
// those tasks in either direction through a durable history store.
//
// Everything here is single-threaded by contract: the graph is live and
// not thread-safe, so the engine must run on the host's mutation thread.
// The server layer serializes skill dispatch for the same reason.
package engine

import (
	"fmt"
	"time"

	"github.com/novafield/rewind/internal/history"
	"github.com/novafield/rewind/internal/infrastructure/logging"
	"github.com/novafield/rewind/internal/infrastructure/monitoring"
	"github.com/novafield/rewind/internal/scene"
	"github.com/novafield/rewind/internal/types"
)

// Event describes a history change for external observers.
type Event struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"task_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Reverted  int       `json:"reverted,omitempty"`
	Skipped   int       `json:"skipped,omitempty"`
	Time      time.Time `json:"time"`
}

const (
	EventTaskRecorded   = "task_recorded"
	EventTaskUndone     = "task_undone"
	EventTaskRedone     = "task_redone"
	EventSessionUndone  = "session_undone"
	EventTaskDeleted    = "task_deleted"
	EventHistoryCleared = "history_cleared"
)

// Notifier receives history events. Implementations must not block.
type Notifier interface {
	Publish(Event)
}

// Engine ties the recorder, the executor, and the query surface together.
type Engine struct {
	Graph    *scene.Graph
	Assets   *scene.Assets
	Store    *history.Store
	Recorder *Recorder
	Executor *Executor

	logger   *logging.Logger
	metrics  *monitoring.Metrics
	notifier Notifier
}

// New creates an engine over the given graph, assets, and store.
func New(graph *scene.Graph, assets *scene.Assets, store *history.Store, logger *logging.Logger, metrics *monitoring.Metrics) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		Graph:    graph,
		Assets:   assets,
		Store:    store,
		Recorder: NewRecorder(graph, assets, store, logger, metrics, DefaultSaveEvery),
		Executor: NewExecutor(graph, assets, store, logger, metrics),
		logger:   logger.Named("engine"),
		metrics:  metrics,
	}
}

// SetNotifier installs the history event sink.
func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

func (e *Engine) publish(eventType string, res Result) {
	if e.notifier == nil {
		return
	}
	e.notifier.Publish(Event{
		Type:      eventType,
		TaskID:    res.TaskID,
		SessionID: res.SessionID,
		Reverted:  res.Reverted,
		Skipped:   res.Skipped,
		Time:      time.Now(),
	})
}

// WithTask runs fn inside a task boundary. If a task is already open (for
// example the active session's auto-task), fn records into it; otherwise a
// task is opened for the duration of fn and sealed afterwards.
func (e *Engine) WithTask(tag, description string, fn func() error) error {
	if e.Recorder.OpenTask() != nil {
		return fn()
	}
	e.Recorder.BeginTask(tag, description)
	err := fn()
	if task := e.Recorder.EndTask(); task != nil {
		e.publish(EventTaskRecorded, Result{TaskID: task.ID, SessionID: task.SessionID})
	}
	return err
}

// UndoTask reverts one task by id.
func (e *Engine) UndoTask(taskID string) (Result, error) {
	res, err := e.Executor.UndoTask(taskID)
	if err == nil {
		e.publish(EventTaskUndone, res)
	}
	return res, err
}

// RedoTask replays one undone task by id.
func (e *Engine) RedoTask(taskID string) (Result, error) {
	res, err := e.Executor.RedoTask(taskID)
	if err == nil {
		e.publish(EventTaskRedone, res)
	}
	return res, err
}

// UndoSession reverts every task in a session.
func (e *Engine) UndoSession(sessionID string) (Result, error) {
	res, err := e.Executor.UndoSession(sessionID)
	if err == nil {
		e.publish(EventSessionUndone, res)
	}
	return res, err
}

// History returns the recorded task list and the redo stack.
func (e *Engine) History() (tasks, undone []*types.WorkflowTask) {
	doc := e.Store.Load()
	return doc.Tasks, doc.UndoneStack
}

// Sessions derives session summaries from the task list. Sessions are
// never stored; they are always computed from the tasks sharing an id.
func (e *Engine) Sessions() []types.SessionInfo {
	doc := e.Store.Load()
	byID := make(map[string]*types.SessionInfo)
	var order []string
	for _, t := range doc.Tasks {
		if t.SessionID == "" {
			continue
		}
		info, ok := byID[t.SessionID]
		if !ok {
			info = &types.SessionInfo{ID: t.SessionID, StartedAt: t.Timestamp, EndedAt: t.Timestamp}
			byID[t.SessionID] = info
			order = append(order, t.SessionID)
		}
		info.TaskCount++
		info.SnapshotCount += len(t.Snapshots)
		info.TaskIDs = append(info.TaskIDs, t.ID)
		if t.Timestamp.Before(info.StartedAt) {
			info.StartedAt = t.Timestamp
		}
		if t.Timestamp.After(info.EndedAt) {
			info.EndedAt = t.Timestamp
		}
	}
	out := make([]types.SessionInfo, 0, len(order))
	for _, sid := range order {
		out = append(out, *byID[sid])
	}
	return out
}

// DeleteTask drops a task from whichever list holds it, without reverting
// anything.
func (e *Engine) DeleteTask(taskID string) error {
	doc := e.Store.Load()
	if _, i := doc.FindTask(taskID); i >= 0 {
		doc.Tasks = append(doc.Tasks[:i], doc.Tasks[i+1:]...)
	} else if _, i := doc.FindUndone(taskID); i >= 0 {
		doc.UndoneStack = append(doc.UndoneStack[:i], doc.UndoneStack[i+1:]...)
	} else {
		return fmt.Errorf("task %q not found", taskID)
	}
	if err := e.Store.Save(); err != nil {
		return err
	}
	e.metrics.RecordStoreSave()
	e.publish(EventTaskDeleted, Result{TaskID: taskID})
	return nil
}

// ClearHistory drops every recorded task and the entire redo stack.
func (e *Engine) ClearHistory() error {
	doc := e.Store.Load()
	doc.Tasks = nil
	doc.UndoneStack = nil
	if err := e.Store.Save(); err != nil {
		return err
	}
	e.metrics.RecordStoreSave()
	e.publish(EventHistoryCleared, Result{})
	return nil
}
