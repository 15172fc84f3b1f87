package scene

import (
	"encoding/json"
	"strings"

	"github.com/novafield/rewind/internal/types"
)

// Identity strings survive process restarts because they encode an object's
// position in the graph rather than a transient in-memory handle:
//
//	/World/Player            container object
//	/World/Player#Surface    attached capability
//	asset:materials/sky.mat  file-backed asset
const assetIdentityPrefix = "asset:"

// Identify returns the stable identity of a container object.
func Identify(o *Object) string {
	return o.Path()
}

// IdentifyCapability returns the stable identity of an attached capability.
func IdentifyCapability(owner *Object, cap Capability) string {
	return owner.Path() + "#" + cap.TypeName()
}

// AssetIdentity returns the stable identity of a file-backed asset.
func AssetIdentity(resourcePath string) string {
	return assetIdentityPrefix + resourcePath
}

// Ref is the result of resolving an identity back to a live target.
type Ref struct {
	Kind         types.SnapshotKind
	Object       *Object    // owner for capabilities, the object itself for objects
	Capability   Capability // set only for capability identities
	ResourcePath string     // set only for asset identities
}

// Resolve maps an identity string back to a live target. A stale or
// no-longer-existent identity yields (Ref{}, false); callers treat that as
// a skippable condition, never a fatal error.
func (g *Graph) Resolve(identity string) (Ref, bool) {
	if strings.HasPrefix(identity, assetIdentityPrefix) {
		return Ref{Kind: types.KindAsset, ResourcePath: strings.TrimPrefix(identity, assetIdentityPrefix)}, true
	}
	path, typeName, isCap := strings.Cut(identity, "#")
	obj, ok := g.Find(path)
	if !ok {
		return Ref{}, false
	}
	if !isCap {
		return Ref{Kind: types.KindObject, Object: obj}, true
	}
	cap, ok := obj.Capability(typeName)
	if !ok {
		return Ref{}, false
	}
	return Ref{Kind: types.KindCapability, Object: obj, Capability: cap}, true
}

// objectState is the serialized form of a container object's own mutable
// fields, used for Modified snapshots of objects.
type objectState struct {
	Name      string     `json:"name"`
	ShapeKind string     `json:"shape_kind,omitempty"`
	Pose      types.Pose `json:"pose"`
}

// MarshalObjectState serializes the object's public fields.
func MarshalObjectState(o *Object) ([]byte, error) {
	return json.Marshal(objectState{Name: o.name, ShapeKind: o.shapeKind, Pose: o.pose})
}

// ApplyObjectState overwrites the object's mutable fields from a blob
// produced by MarshalObjectState. Name and shape kind are part of the
// object's identity and are left untouched.
func ApplyObjectState(o *Object, data []byte) error {
	var state objectState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	o.pose = state.Pose
	return nil
}
