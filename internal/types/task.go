package types

import "time"

// WorkflowTask is an atomic, named, reversible batch of object snapshots.
// A task is mutable only while open; once sealed it moves wholesale between
// the task list and the redo stack, never partially.
type WorkflowTask struct {
	ID          string           `json:"id"`
	Tag         string           `json:"tag"`
	Description string           `json:"description,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	SessionID   string           `json:"session_id,omitempty"`
	Snapshots   []ObjectSnapshot `json:"snapshots"`
}

// Has reports whether the task already holds a snapshot for the identity.
// Within one task each identity appears at most once: the earliest capture
// is the truest "before" state and wins.
func (t *WorkflowTask) Has(identity string) bool {
	for i := range t.Snapshots {
		if t.Snapshots[i].Identity == identity {
			return true
		}
	}
	return false
}

// SessionInfo is a derived view over the tasks sharing a session id. It is
// always computed from the task list, never stored.
type SessionInfo struct {
	ID            string    `json:"id"`
	TaskCount     int       `json:"task_count"`
	SnapshotCount int       `json:"snapshot_count"`
	TaskIDs       []string  `json:"task_ids"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
}

// HistoryDocument is the persisted shape of the engine's history: the
// chronological task list and the LIFO redo stack.
type HistoryDocument struct {
	Tasks       []*WorkflowTask `json:"tasks"`
	UndoneStack []*WorkflowTask `json:"undoneStack"`
}

// FindTask locates a task by id in the task list.
func (d *HistoryDocument) FindTask(id string) (*WorkflowTask, int) {
	for i, t := range d.Tasks {
		if t != nil && t.ID == id {
			return t, i
		}
	}
	return nil, -1
}

// FindUndone locates a task by id on the redo stack.
func (d *HistoryDocument) FindUndone(id string) (*WorkflowTask, int) {
	for i, t := range d.UndoneStack {
		if t != nil && t.ID == id {
			return t, i
		}
	}
	return nil, -1
}
