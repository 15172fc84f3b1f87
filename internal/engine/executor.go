package engine

import (
	"fmt"
	"path"
	"time"

	"github.com/novafield/rewind/internal/history"
	"github.com/novafield/rewind/internal/infrastructure/logging"
	"github.com/novafield/rewind/internal/infrastructure/monitoring"
	"github.com/novafield/rewind/internal/scene"
	"github.com/novafield/rewind/internal/types"
	"go.uber.org/zap"
)

// Result reports the outcome of an undo/redo walk. Per-snapshot failures
// never fail the walk; callers learn about them only through the count
// mismatch between Reverted and the task's snapshot total.
type Result struct {
	TaskID    string `json:"task_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Reverted  int    `json:"reverted"`
	Skipped   int    `json:"skipped"`
}

// Executor walks a task's (or a session's merged) snapshots in reverse
// capture order, reverts each, and captures the complementary forward
// state into a task pushed onto the opposite stack. The returned error is
// non-nil only when the task or session lookup itself fails.
type Executor struct {
	snap    snapshotter
	store   *history.Store
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewExecutor creates an executor over the same graph, assets, and store
// the recorder uses.
func NewExecutor(graph *scene.Graph, assets *scene.Assets, store *history.Store, logger *logging.Logger, metrics *monitoring.Metrics) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		snap:    snapshotter{graph: graph, assets: assets, logger: logger, metrics: metrics},
		store:   store,
		logger:  logger.Named("executor"),
		metrics: metrics,
	}
}

// UndoTask reverts every snapshot of the task, newest first, moving the
// task to the redo stack with freshly captured forward state. Processing
// in reverse capture order guarantees an object created after another
// (a child on a just-created parent) is removed before its dependency.
func (e *Executor) UndoTask(taskID string) (Result, error) {
	doc := e.store.Load()
	task, idx := doc.FindTask(taskID)
	if task == nil {
		return Result{}, fmt.Errorf("task %q not found in history", taskID)
	}

	endGroup := e.snap.graph.UndoGroup("Undo " + task.Tag)
	redo := &types.WorkflowTask{
		ID:          task.ID,
		Tag:         task.Tag,
		Description: task.Description,
		Timestamp:   time.Now(),
		SessionID:   task.SessionID,
	}
	res := Result{TaskID: taskID}
	for i := len(task.Snapshots) - 1; i >= 0; i-- {
		snap := task.Snapshots[i]
		redo.Snapshots = append(redo.Snapshots, e.freshForward(snap))
		if err := e.revert(snap); err != nil {
			e.logger.Warn("skipping snapshot during undo",
				zap.String("task", taskID),
				zap.String("identity", snap.Identity), zap.Error(err))
			res.Skipped++
			continue
		}
		res.Reverted++
	}
	endGroup()

	doc.Tasks = append(doc.Tasks[:idx], doc.Tasks[idx+1:]...)
	doc.UndoneStack = append(doc.UndoneStack, redo)
	e.persist()
	e.metrics.RecordReversal(res.Reverted, res.Skipped)
	return res, nil
}

// RedoTask replays a task from the redo stack: reconstructing what the
// undo destroyed and reapplying what it restored. Each action's target is
// re-captured fresh into a new task appended to the primary task list, so
// the round trip can repeat indefinitely.
func (e *Executor) RedoTask(taskID string) (Result, error) {
	doc := e.store.Load()
	task, idx := doc.FindUndone(taskID)
	if task == nil {
		return Result{}, fmt.Errorf("task %q not found on the redo stack", taskID)
	}

	endGroup := e.snap.graph.UndoGroup("Redo " + task.Tag)
	fresh := &types.WorkflowTask{
		ID:          task.ID,
		Tag:         task.Tag,
		Description: task.Description,
		Timestamp:   time.Now(),
		SessionID:   task.SessionID,
	}
	res := Result{TaskID: taskID}
	// Stored order is the previous walk's processing order, so reversing
	// here recovers the original capture order: parents are reconstructed
	// before their children.
	for i := len(task.Snapshots) - 1; i >= 0; i-- {
		snap := task.Snapshots[i]
		switch snap.Classification {
		case types.ClassificationModified:
			// Capture the pre-redo state first: it is the truest "before"
			// for the task going back onto the primary list.
			if pre, ok := e.snap.modified(snap.Identity); ok {
				fresh.Snapshots = append(fresh.Snapshots, pre)
			} else {
				fresh.Snapshots = append(fresh.Snapshots, snap)
			}
			if err := e.restore(snap); err != nil {
				e.logger.Warn("skipping snapshot during redo",
					zap.String("task", taskID),
					zap.String("identity", snap.Identity), zap.Error(err))
				res.Skipped++
				continue
			}
			res.Reverted++
		default:
			if err := e.reconstruct(snap); err != nil {
				e.logger.Warn("skipping snapshot during redo",
					zap.String("task", taskID),
					zap.String("identity", snap.Identity), zap.Error(err))
				fresh.Snapshots = append(fresh.Snapshots, snap)
				res.Skipped++
				continue
			}
			if rebuilt, ok := e.snap.created(snap.Identity); ok {
				fresh.Snapshots = append(fresh.Snapshots, rebuilt)
			} else {
				fresh.Snapshots = append(fresh.Snapshots, snap)
			}
			res.Reverted++
		}
	}
	endGroup()

	doc.UndoneStack = append(doc.UndoneStack[:idx], doc.UndoneStack[idx+1:]...)
	doc.Tasks = append(doc.Tasks, fresh)
	e.persist()
	e.metrics.RecordReversal(res.Reverted, res.Skipped)
	return res, nil
}

// UndoSession reverts every task tagged with the session id in one sweep.
// Snapshots are merged across tasks and deduplicated keeping the earliest
// occurrence per identity, the truest original state, then processed in
// reverse. Session undo does not populate the redo stack: sessions are
// bulk cleanup, and session-level redo is unsupported.
func (e *Executor) UndoSession(sessionID string) (Result, error) {
	doc := e.store.Load()
	var sessionTasks, keep []*types.WorkflowTask
	for _, t := range doc.Tasks {
		if t.SessionID == sessionID {
			sessionTasks = append(sessionTasks, t)
		} else {
			keep = append(keep, t)
		}
	}
	if len(sessionTasks) == 0 {
		return Result{}, fmt.Errorf("session %q not found in history", sessionID)
	}

	seen := make(map[string]struct{})
	var merged []types.ObjectSnapshot
	for _, t := range sessionTasks {
		for _, snap := range t.Snapshots {
			if _, dup := seen[snap.Identity]; dup {
				continue
			}
			seen[snap.Identity] = struct{}{}
			merged = append(merged, snap)
		}
	}

	endGroup := e.snap.graph.UndoGroup("Undo session " + sessionID)
	res := Result{SessionID: sessionID}
	for i := len(merged) - 1; i >= 0; i-- {
		if err := e.revert(merged[i]); err != nil {
			e.logger.Warn("skipping snapshot during session undo",
				zap.String("session", sessionID),
				zap.String("identity", merged[i].Identity), zap.Error(err))
			res.Skipped++
			continue
		}
		res.Reverted++
	}
	endGroup()

	doc.Tasks = keep
	e.persist()
	e.metrics.RecordReversal(res.Reverted, res.Skipped)
	return res, nil
}

// freshForward recaptures a snapshot's target from the live graph with the
// same classification, since the target may have evolved after the
// original capture. A target that no longer resolves keeps its
// capture-time data so the opposite stack still has something to replay.
func (e *Executor) freshForward(snap types.ObjectSnapshot) types.ObjectSnapshot {
	var fresh types.ObjectSnapshot
	var ok bool
	if snap.Classification == types.ClassificationCreated {
		fresh, ok = e.snap.created(snap.Identity)
	} else {
		fresh, ok = e.snap.modified(snap.Identity)
	}
	if !ok {
		return snap
	}
	return fresh
}

func (e *Executor) revert(snap types.ObjectSnapshot) error {
	if snap.Classification == types.ClassificationCreated {
		return e.remove(snap)
	}
	return e.restore(snap)
}

// remove undoes a creation.
func (e *Executor) remove(snap types.ObjectSnapshot) error {
	switch snap.Kind {
	case types.KindCapability:
		ref, ok := e.snap.graph.Resolve(snap.OwnerIdentity)
		if !ok || ref.Kind != types.KindObject {
			return fmt.Errorf("owner %q: %w", snap.OwnerIdentity, scene.ErrNotFound)
		}
		return e.snap.graph.Detach(ref.Object.Path(), snap.CapabilityTypeName)
	case types.KindAsset:
		return e.snap.assets.Delete(snap.ResourcePath)
	default:
		return e.snap.graph.Destroy(snap.Identity)
	}
}

// restore overwrites a live target's state from the snapshot: raw bytes
// for assets with a backup, serialized state for everything else.
func (e *Executor) restore(snap types.ObjectSnapshot) error {
	if snap.Kind == types.KindAsset {
		if len(snap.AssetBackup) == 0 {
			return fmt.Errorf("asset %q has no byte backup", snap.ResourcePath)
		}
		data, err := decompressBackup(snap.AssetBackup)
		if err != nil {
			return err
		}
		return e.snap.assets.WriteBytes(snap.ResourcePath, data)
	}
	ref, ok := e.snap.graph.Resolve(snap.Identity)
	if !ok {
		return fmt.Errorf("identity %q: %w", snap.Identity, scene.ErrNotFound)
	}
	if len(snap.SerializedState) == 0 {
		// Capture recorded an empty blob; nothing to restore.
		return nil
	}
	if ref.Kind == types.KindCapability {
		return ref.Capability.Deserialize(snap.SerializedState)
	}
	return scene.ApplyObjectState(ref.Object, snap.SerializedState)
}

// reconstruct redoes a creation from the snapshot's reconstruction data.
func (e *Executor) reconstruct(snap types.ObjectSnapshot) error {
	switch snap.Kind {
	case types.KindAsset:
		// Source assets are captured without a byte backup; recreating one
		// would truncate the file to zero bytes.
		if len(snap.AssetBackup) == 0 {
			return fmt.Errorf("asset %q has no byte backup", snap.ResourcePath)
		}
		data, err := decompressBackup(snap.AssetBackup)
		if err != nil {
			return err
		}
		return e.snap.assets.WriteBytes(snap.ResourcePath, data)
	case types.KindCapability:
		ref, ok := e.snap.graph.Resolve(snap.OwnerIdentity)
		if !ok || ref.Kind != types.KindObject {
			return fmt.Errorf("owner %q: %w", snap.OwnerIdentity, scene.ErrNotFound)
		}
		ownerPath := ref.Object.Path()
		cap, exists := ref.Object.Capability(snap.CapabilityTypeName)
		if !exists {
			var err error
			cap, err = e.snap.graph.Attach(ownerPath, snap.CapabilityTypeName)
			if err != nil {
				return err
			}
		}
		if len(snap.SerializedState) > 0 {
			return cap.Deserialize(snap.SerializedState)
		}
		return nil
	default:
		return e.rebuildObject(snap)
	}
}

// rebuildObject reinstantiates a destroyed container: shape, pose, then
// each recorded capability. Capabilities the fresh shape already provides
// by default are not re-attached, only overlaid with recorded state.
func (e *Executor) rebuildObject(snap types.ObjectSnapshot) error {
	parentPath := path.Dir(snap.Identity)
	name := path.Base(snap.Identity)
	obj, err := e.snap.graph.Create(parentPath, name, snap.ShapeKind)
	if err != nil {
		return err
	}
	if snap.Pose != nil {
		if err := e.snap.graph.SetPose(obj.Path(), *snap.Pose); err != nil {
			return err
		}
	}
	catalog := e.snap.graph.Catalog()
	for _, rec := range snap.Capabilities {
		if catalog.IsDefaultCapability(snap.ShapeKind, rec.TypeName) {
			if cap, ok := obj.Capability(rec.TypeName); ok && len(rec.State) > 0 {
				if err := cap.Deserialize(rec.State); err != nil {
					e.logger.Warn("failed to overlay default capability state",
						zap.String("identity", snap.Identity),
						zap.String("type", rec.TypeName), zap.Error(err))
				}
			}
			continue
		}
		cap, err := e.snap.graph.Attach(obj.Path(), rec.TypeName)
		if err != nil {
			e.logger.Warn("skipping capability during reconstruction",
				zap.String("identity", snap.Identity),
				zap.String("type", rec.TypeName), zap.Error(err))
			continue
		}
		if len(rec.State) > 0 {
			if err := cap.Deserialize(rec.State); err != nil {
				e.logger.Warn("failed to restore capability state",
					zap.String("identity", snap.Identity),
					zap.String("type", rec.TypeName), zap.Error(err))
			}
		}
	}
	return nil
}

func (e *Executor) persist() {
	if err := e.store.Save(); err != nil {
		e.logger.Error("failed to persist history", zap.Error(err))
		return
	}
	e.metrics.RecordStoreSave()
}
