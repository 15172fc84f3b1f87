package engine

import (
	"fmt"
	"time"

	"github.com/novafield/rewind/internal/history"
	"github.com/novafield/rewind/internal/infrastructure/logging"
	"github.com/novafield/rewind/internal/infrastructure/monitoring"
	"github.com/novafield/rewind/internal/scene"
	"github.com/novafield/rewind/internal/shared/id"
	"github.com/novafield/rewind/internal/types"
	"go.uber.org/zap"
)

// DefaultSaveEvery is the capture interval for incremental history saves
// while a task is open. The open-task pointer itself does not survive a
// process restart; the checkpointed snapshots do.
const DefaultSaveEvery = 10

// Recorder accumulates snapshots for the single open task and tags tasks
// with the active session. There is at most one open task at a time,
// globally: BeginTask force-closes whatever is open. The recorder holds
// all "current" state explicitly; a restart resets it by construction.
type Recorder struct {
	snap    snapshotter
	store   *history.Store
	logger  *logging.Logger
	metrics *monitoring.Metrics

	saveEvery int
	current   *types.WorkflowTask
	sessionID string
	captures  int
}

// NewRecorder creates a recorder. saveEvery <= 0 disables incremental
// checkpointing.
func NewRecorder(graph *scene.Graph, assets *scene.Assets, store *history.Store, logger *logging.Logger, metrics *monitoring.Metrics, saveEvery int) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{
		snap:      snapshotter{graph: graph, assets: assets, logger: logger, metrics: metrics},
		store:     store,
		logger:    logger.Named("recorder"),
		metrics:   metrics,
		saveEvery: saveEvery,
	}
}

// SetSaveEvery overrides the incremental checkpoint interval.
func (r *Recorder) SetSaveEvery(n int) { r.saveEvery = n }

// OpenTask returns the currently open task, or nil.
func (r *Recorder) OpenTask() *types.WorkflowTask { return r.current }

// ActiveSession returns the active session id, or "".
func (r *Recorder) ActiveSession() string { return r.sessionID }

// BeginTask opens a new task, force-closing any task already open. The
// task inherits the active session id.
func (r *Recorder) BeginTask(tag, description string) *types.WorkflowTask {
	if r.current != nil {
		r.logger.Debug("implicit EndTask before BeginTask", zap.String("open_task", r.current.ID))
		r.EndTask()
	}
	r.current = &types.WorkflowTask{
		ID:          id.NewTaskID().String(),
		Tag:         tag,
		Description: description,
		Timestamp:   time.Now(),
		SessionID:   r.sessionID,
	}
	r.captures = 0
	return r.current
}

// EndTask seals the open task, appends it to history, persists, and clears
// the current-task pointer. Returns the sealed task, or nil if none was
// open.
func (r *Recorder) EndTask() *types.WorkflowTask {
	if r.current == nil {
		return nil
	}
	task := r.current
	r.upsert(task)
	if err := r.store.Save(); err != nil {
		r.logger.Error("failed to persist history on EndTask", zap.Error(err))
	} else {
		r.metrics.RecordStoreSave()
	}
	r.metrics.RecordTask()
	r.current = nil
	r.captures = 0
	return task
}

// BeginSession closes any active session, generates a new session id, and
// opens an auto-task tagged with it. Sessions are a tagging layer over
// tasks; they add no persisted structure of their own.
func (r *Recorder) BeginSession(tag string) string {
	r.EndSession()
	r.sessionID = id.NewSessionID().String()
	if tag == "" {
		tag = "session"
	}
	r.BeginTask(tag, fmt.Sprintf("session %s", r.sessionID))
	return r.sessionID
}

// EndSession closes the open task, if any, and clears the session id.
func (r *Recorder) EndSession() {
	if r.current != nil {
		r.EndTask()
	}
	r.sessionID = ""
}

// CaptureModified records an existing target's pre-mutation state. Call it
// before mutating. No open task, a stale identity, or a repeat capture of
// the same identity are all quiet no-ops.
func (r *Recorder) CaptureModified(identity string) {
	if r.current == nil || r.current.Has(identity) {
		return
	}
	snap, ok := r.snap.modified(identity)
	if !ok {
		r.logger.Debug("capture skipped, identity not resolvable", zap.String("identity", identity))
		return
	}
	r.record(snap)
}

// CaptureCreatedObject records full reconstruction data for a container
// object the open task just created.
func (r *Recorder) CaptureCreatedObject(o *scene.Object) {
	r.captureCreated(scene.Identify(o))
}

// CaptureCreatedCapability records a capability the open task just
// attached to an existing owner.
func (r *Recorder) CaptureCreatedCapability(owner *scene.Object, cap scene.Capability) {
	r.captureCreated(scene.IdentifyCapability(owner, cap))
}

// CaptureCreatedAsset records a file-backed asset the open task just
// created, including a byte backup for non-source files.
func (r *Recorder) CaptureCreatedAsset(resourcePath string) {
	r.captureCreated(scene.AssetIdentity(resourcePath))
}

func (r *Recorder) captureCreated(identity string) {
	if r.current == nil || r.current.Has(identity) {
		return
	}
	snap, ok := r.snap.created(identity)
	if !ok {
		r.logger.Debug("capture skipped, identity not resolvable", zap.String("identity", identity))
		return
	}
	r.record(snap)
}

func (r *Recorder) record(snap types.ObjectSnapshot) {
	r.current.Snapshots = append(r.current.Snapshots, snap)
	r.captures++
	if r.saveEvery > 0 && r.captures%r.saveEvery == 0 {
		r.checkpoint()
	}
}

// checkpoint writes the open task into the store mid-flight so a crash
// loses at most saveEvery-1 captures.
func (r *Recorder) checkpoint() {
	r.upsert(r.current)
	if err := r.store.Save(); err != nil {
		r.logger.Warn("incremental history save failed", zap.Error(err))
		return
	}
	r.metrics.RecordStoreSave()
}

func (r *Recorder) upsert(task *types.WorkflowTask) {
	doc := r.store.Load()
	if _, i := doc.FindTask(task.ID); i >= 0 {
		doc.Tasks[i] = task
		return
	}
	doc.Tasks = append(doc.Tasks, task)
}
