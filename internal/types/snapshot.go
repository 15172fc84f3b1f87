package types

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Classification marks whether a snapshot describes an object that the task
// created, or one that existed before and was modified.
type Classification string

const (
	ClassificationCreated  Classification = "created"
	ClassificationModified Classification = "modified"
)

// SnapshotKind identifies which part of the scene a snapshot targets.
type SnapshotKind string

const (
	KindObject     SnapshotKind = "object"
	KindCapability SnapshotKind = "capability"
	KindAsset      SnapshotKind = "asset"
)

// Pose holds an object's transform in world space.
type Pose struct {
	Position r3.Vec `json:"position"`
	Rotation r3.Vec `json:"rotation"` // Euler angles, degrees
	Scale    r3.Vec `json:"scale"`
}

// IdentityPose returns a pose at the origin with unit scale.
func IdentityPose() Pose {
	return Pose{Scale: r3.Vec{X: 1, Y: 1, Z: 1}}
}

// CapabilityRecord describes one attached capability well enough to
// re-attach it to a reconstructed object.
type CapabilityRecord struct {
	TypeName string `json:"type_name"`
	State    []byte `json:"state,omitempty"`
}

// ObjectSnapshot is one object's state at one point in time. Fields beyond
// the first block are populated only for the snapshot kinds that need them:
// capability snapshots carry their owner so deletion and recreation work
// even after the owner has been destroyed and rebuilt, object snapshots
// carry full reconstruction data, and asset snapshots carry the backing
// resource path plus an optional raw-byte backup.
type ObjectSnapshot struct {
	Identity       string         `json:"identity"`
	Classification Classification `json:"classification"`
	Kind           SnapshotKind   `json:"kind"`
	TypeName       string         `json:"type_name,omitempty"`
	DisplayName    string         `json:"display_name,omitempty"`
	CapturedAt     time.Time      `json:"captured_at"`

	// Opaque serialized state. Empty when capture failed; the snapshot is
	// still recorded so identity bookkeeping stays correct.
	SerializedState []byte `json:"serialized_state,omitempty"`

	// Capability snapshots.
	OwnerIdentity      string `json:"owner_identity,omitempty"`
	CapabilityTypeName string `json:"capability_type_name,omitempty"`

	// Object snapshots: everything needed to rebuild from scratch.
	ShapeKind    string             `json:"shape_kind,omitempty"`
	Pose         *Pose              `json:"pose,omitempty"`
	Capabilities []CapabilityRecord `json:"capabilities,omitempty"`

	// Asset snapshots. AssetBackup is gzip-compressed raw file content,
	// populated only for non-source assets where generic serialization
	// would be lossy.
	ResourcePath string `json:"resource_path,omitempty"`
	AssetBackup  []byte `json:"asset_backup,omitempty"`
}
