package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/novafield/rewind/internal/types"
)

func TestIdentityScheme(t *testing.T) {
	g := newTestGraph(t)

	world, err := g.Create("/", "World", "")
	require.NoError(t, err)
	player, err := g.Create("/World", "Player", "")
	require.NoError(t, err)
	cap, err := g.Attach("/World/Player", "Surface")
	require.NoError(t, err)

	assert.Equal(t, "/World", Identify(world))
	assert.Equal(t, "/World/Player", Identify(player))
	assert.Equal(t, "/World/Player#Surface", IdentifyCapability(player, cap))
	assert.Equal(t, "asset:materials/sky.mat", AssetIdentity("materials/sky.mat"))
}

func TestResolveObject(t *testing.T) {
	g := newTestGraph(t)
	obj, err := g.Create("/", "Player", "")
	require.NoError(t, err)

	ref, ok := g.Resolve("/Player")
	require.True(t, ok)
	assert.Equal(t, types.KindObject, ref.Kind)
	assert.Same(t, obj, ref.Object)
}

func TestResolveCapability(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Create("/", "Player", "")
	require.NoError(t, err)
	cap, err := g.Attach("/Player", "Body")
	require.NoError(t, err)

	ref, ok := g.Resolve("/Player#Body")
	require.True(t, ok)
	assert.Equal(t, types.KindCapability, ref.Kind)
	assert.Same(t, cap, ref.Capability)
	assert.Equal(t, "/Player", ref.Object.Path())
}

func TestResolveStaleIdentity(t *testing.T) {
	g := newTestGraph(t)

	_, ok := g.Resolve("/Gone")
	assert.False(t, ok)
	_, ok = g.Resolve("/Gone#Surface")
	assert.False(t, ok)
}

func TestResolveAssetAlwaysSucceeds(t *testing.T) {
	g := newTestGraph(t)

	ref, ok := g.Resolve("asset:textures/missing.png")
	require.True(t, ok)
	assert.Equal(t, types.KindAsset, ref.Kind)
	assert.Equal(t, "textures/missing.png", ref.ResourcePath)
}

func TestObjectStateRoundTrip(t *testing.T) {
	g := newTestGraph(t)
	obj, err := g.Create("/", "Player", "cube")
	require.NoError(t, err)

	pose := types.IdentityPose()
	pose.Position = r3.Vec{X: 4, Y: 5, Z: 6}
	require.NoError(t, g.SetPose("/Player", pose))

	blob, err := MarshalObjectState(obj)
	require.NoError(t, err)

	require.NoError(t, g.SetPose("/Player", types.IdentityPose()))
	require.NoError(t, ApplyObjectState(obj, blob))
	assert.Equal(t, pose, obj.Pose())
}

func TestApplyObjectStateKeepsIdentityFields(t *testing.T) {
	g := newTestGraph(t)
	obj, err := g.Create("/", "Player", "cube")
	require.NoError(t, err)

	require.NoError(t, ApplyObjectState(obj, []byte(`{"name":"Other","shape_kind":"sphere","pose":{"position":{},"rotation":{},"scale":{"X":1,"Y":1,"Z":1}}}`)))
	assert.Equal(t, "Player", obj.Name())
	assert.Equal(t, "cube", obj.ShapeKind())
}
