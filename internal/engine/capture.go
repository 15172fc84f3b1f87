package engine

import (
	"path"
	"time"

	"github.com/novafield/rewind/internal/infrastructure/logging"
	"github.com/novafield/rewind/internal/infrastructure/monitoring"
	"github.com/novafield/rewind/internal/scene"
	"github.com/novafield/rewind/internal/types"
	"go.uber.org/zap"
)

// snapshotter builds snapshots from the live graph. Capture is best-effort
// throughout: a serialization failure is logged and leaves the state blob
// empty, it never aborts the caller's operation.
type snapshotter struct {
	graph   *scene.Graph
	assets  *scene.Assets
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// modified captures the current state of an existing target. The second
// return is false only when the identity no longer resolves.
func (s *snapshotter) modified(identity string) (types.ObjectSnapshot, bool) {
	ref, ok := s.graph.Resolve(identity)
	if !ok {
		return types.ObjectSnapshot{}, false
	}
	snap := types.ObjectSnapshot{
		Identity:       identity,
		Classification: types.ClassificationModified,
		Kind:           ref.Kind,
		CapturedAt:     time.Now(),
	}
	switch ref.Kind {
	case types.KindObject:
		snap.DisplayName = ref.Object.Name()
		snap.SerializedState = s.serializeObject(ref.Object, identity)
	case types.KindCapability:
		snap.TypeName = ref.Capability.TypeName()
		snap.DisplayName = ref.Capability.TypeName()
		snap.OwnerIdentity = ref.Object.Path()
		snap.CapabilityTypeName = ref.Capability.TypeName()
		snap.SerializedState = s.serializeCapability(ref.Capability, identity)
	case types.KindAsset:
		snap.ResourcePath = ref.ResourcePath
		snap.DisplayName = path.Base(ref.ResourcePath)
		snap.AssetBackup = s.backupAsset(ref.ResourcePath)
	}
	s.metrics.RecordCapture(string(snap.Classification), string(snap.Kind))
	return snap, true
}

// created captures full reconstruction data for a target the open task
// brought into existence, so it can be rebuilt from scratch after a later
// destruction.
func (s *snapshotter) created(identity string) (types.ObjectSnapshot, bool) {
	ref, ok := s.graph.Resolve(identity)
	if !ok {
		return types.ObjectSnapshot{}, false
	}
	snap := types.ObjectSnapshot{
		Identity:       identity,
		Classification: types.ClassificationCreated,
		Kind:           ref.Kind,
		CapturedAt:     time.Now(),
	}
	switch ref.Kind {
	case types.KindObject:
		obj := ref.Object
		snap.DisplayName = obj.Name()
		snap.ShapeKind = obj.ShapeKind()
		pose := obj.Pose()
		snap.Pose = &pose
		for _, cap := range obj.Capabilities() {
			snap.Capabilities = append(snap.Capabilities, types.CapabilityRecord{
				TypeName: cap.TypeName(),
				State:    s.serializeCapability(cap, identity),
			})
		}
	case types.KindCapability:
		snap.TypeName = ref.Capability.TypeName()
		snap.DisplayName = ref.Capability.TypeName()
		snap.OwnerIdentity = ref.Object.Path()
		snap.CapabilityTypeName = ref.Capability.TypeName()
		snap.SerializedState = s.serializeCapability(ref.Capability, identity)
	case types.KindAsset:
		snap.ResourcePath = ref.ResourcePath
		snap.DisplayName = path.Base(ref.ResourcePath)
		snap.AssetBackup = s.backupAsset(ref.ResourcePath)
	}
	s.metrics.RecordCapture(string(snap.Classification), string(snap.Kind))
	return snap, true
}

func (s *snapshotter) serializeObject(o *scene.Object, identity string) []byte {
	state, err := scene.MarshalObjectState(o)
	if err != nil {
		s.logger.Warn("object state capture failed, recording empty blob",
			zap.String("identity", identity), zap.Error(err))
		s.metrics.RecordCaptureFailure()
		return nil
	}
	return state
}

func (s *snapshotter) serializeCapability(cap scene.Capability, identity string) []byte {
	state, err := cap.Serialize()
	if err != nil {
		s.logger.Warn("capability state capture failed, recording empty blob",
			zap.String("identity", identity),
			zap.String("type", cap.TypeName()), zap.Error(err))
		s.metrics.RecordCaptureFailure()
		return nil
	}
	return state
}

// backupAsset reads and compresses the asset's raw bytes. Source files are
// excluded: their content drives a recompilation step outside the engine's
// control, and rewriting them during undo would trigger rebuild cycles.
func (s *snapshotter) backupAsset(resourcePath string) []byte {
	if !s.assets.Exists(resourcePath) || s.assets.IsSource(resourcePath) {
		return nil
	}
	data, err := s.assets.ReadBytes(resourcePath)
	if err != nil {
		s.logger.Warn("asset backup failed, recording without bytes",
			zap.String("resource", resourcePath), zap.Error(err))
		s.metrics.RecordCaptureFailure()
		return nil
	}
	packed, err := compressBackup(data)
	if err != nil {
		s.logger.Warn("asset backup failed, recording without bytes",
			zap.String("resource", resourcePath), zap.Error(err))
		s.metrics.RecordCaptureFailure()
		return nil
	}
	return packed
}
