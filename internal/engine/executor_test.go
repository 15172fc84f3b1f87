package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/novafield/rewind/internal/scene"
	"github.com/novafield/rewind/internal/types"
)

func TestUndoDestroysCreatedObjects(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	task := r.BeginTask("build", "")
	obj, err := f.graph.Create("/", "Box", "cube")
	require.NoError(t, err)
	r.CaptureCreatedObject(obj)
	r.EndTask()

	res, err := f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reverted)
	assert.Equal(t, 0, res.Skipped)

	_, ok := f.graph.Find("/Box")
	assert.False(t, ok)

	doc := f.store.Load()
	_, idx := doc.FindTask(task.ID)
	assert.Equal(t, -1, idx, "undone task leaves the primary list")
	undone, _ := doc.FindUndone(task.ID)
	require.NotNil(t, undone, "undone task lands on the redo stack under the same id")
}

func TestUndoRestoresModifiedPose(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder
	_, err := f.graph.Create("/", "Player", "")
	require.NoError(t, err)

	task := r.BeginTask("move", "")
	r.CaptureModified("/Player")
	moved := types.IdentityPose()
	moved.Position = r3.Vec{X: 9}
	require.NoError(t, f.graph.SetPose("/Player", moved))
	r.EndTask()

	_, err = f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)

	obj, _ := f.graph.Find("/Player")
	assert.Equal(t, types.IdentityPose(), obj.Pose())
}

func TestUndoProcessesInReverseCaptureOrder(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	// Parent captured before child; undo must destroy the child first,
	// which only works if snapshots are walked newest-first.
	task := r.BeginTask("build tree", "")
	parent, err := f.graph.Create("/", "Parent", "")
	require.NoError(t, err)
	r.CaptureCreatedObject(parent)
	child, err := f.graph.Create("/Parent", "Child", "")
	require.NoError(t, err)
	r.CaptureCreatedObject(child)
	r.EndTask()

	res, err := f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Reverted)
	assert.Equal(t, 0, res.Skipped)

	_, ok := f.graph.Find("/Parent")
	assert.False(t, ok)
}

func TestUndoSkipsStaleTargets(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder
	_, err := f.graph.Create("/", "Player", "")
	require.NoError(t, err)
	_, err = f.graph.Create("/", "Enemy", "")
	require.NoError(t, err)

	task := r.BeginTask("edit", "")
	r.CaptureModified("/Player")
	r.CaptureModified("/Enemy")
	r.EndTask()

	// Someone deletes Enemy outside any task.
	require.NoError(t, f.graph.Destroy("/Enemy"))

	res, err := f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reverted)
	assert.Equal(t, 1, res.Skipped)

	// The walk still finished and the task still moved stacks.
	_, idx := f.store.Load().FindTask(task.ID)
	assert.Equal(t, -1, idx)
}

func TestUndoRedoRoundTrip(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	task := r.BeginTask("build", "")
	obj, err := f.graph.Create("/", "Box", "cube")
	require.NoError(t, err)
	r.CaptureCreatedObject(obj)
	pose := types.IdentityPose()
	pose.Position = r3.Vec{X: 3, Y: 1}
	require.NoError(t, f.graph.SetPose("/Box", pose))
	require.NoError(t, f.graph.SetCapabilityState("/Box", "Surface", []byte(`{"color":"#00ff00","roughness":0.2,"visible":true}`)))
	r.EndTask()

	_, err = f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	_, ok := f.graph.Find("/Box")
	require.False(t, ok)

	res, err := f.eng.Executor.RedoTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reverted)

	rebuilt, ok := f.graph.Find("/Box")
	require.True(t, ok)
	assert.Equal(t, "cube", rebuilt.ShapeKind())
	assert.Equal(t, pose, rebuilt.Pose())
	cap, ok := rebuilt.Capability("Surface")
	require.True(t, ok)
	assert.Equal(t, "#00ff00", cap.(*scene.Surface).Color)

	// Round trip again: the task is back on the primary list.
	doc := f.store.Load()
	fresh, _ := doc.FindTask(task.ID)
	require.NotNil(t, fresh)
	_, err = f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	_, ok = f.graph.Find("/Box")
	assert.False(t, ok)
}

func TestRedoReattachesNonDefaultCapabilities(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	task := r.BeginTask("script it", "")
	obj, err := f.graph.Create("/", "Bot", "sphere")
	require.NoError(t, err)
	script, err := f.graph.Attach("/Bot", "ScriptRef")
	require.NoError(t, err)
	require.NoError(t, script.Deserialize([]byte(`{"source":"scripts/Bot.cs","enabled":true}`)))
	r.CaptureCreatedObject(obj)
	r.EndTask()

	_, err = f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	_, err = f.eng.Executor.RedoTask(task.ID)
	require.NoError(t, err)

	rebuilt, ok := f.graph.Find("/Bot")
	require.True(t, ok)
	cap, ok := rebuilt.Capability("ScriptRef")
	require.True(t, ok)
	assert.Equal(t, "scripts/Bot.cs", cap.(*scene.ScriptRef).Source)
	// Defaults were instantiated by the shape, not attached twice.
	assert.Len(t, rebuilt.Capabilities(), 3)
}

func TestUndoCapabilityAttachment(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder
	_, err := f.graph.Create("/", "Player", "")
	require.NoError(t, err)

	task := r.BeginTask("attach", "")
	owner, _ := f.graph.Find("/Player")
	cap, err := f.graph.Attach("/Player", "Body")
	require.NoError(t, err)
	r.CaptureCreatedCapability(owner, cap)
	r.EndTask()

	_, err = f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	_, ok := owner.Capability("Body")
	assert.False(t, ok)

	_, err = f.eng.Executor.RedoTask(task.ID)
	require.NoError(t, err)
	_, ok = owner.Capability("Body")
	assert.True(t, ok)
}

func TestUndoRestoresAssetBytesExactly(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	original := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01, 0x02}
	require.NoError(t, f.assets.WriteBytes("textures/noise.png", original))
	wantHash, err := f.assets.Hash("textures/noise.png")
	require.NoError(t, err)

	task := r.BeginTask("repaint", "")
	r.CaptureModified(scene.AssetIdentity("textures/noise.png"))
	require.NoError(t, f.assets.WriteBytes("textures/noise.png", []byte{0xff, 0xff}))
	r.EndTask()

	_, err = f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)

	gotHash, err := f.assets.Hash("textures/noise.png")
	require.NoError(t, err)
	assert.Equal(t, wantHash, gotHash, "asset restore must be binary exact")
}

func TestUndoDeletesCreatedAsset(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	task := r.BeginTask("import", "")
	require.NoError(t, f.assets.WriteBytes("materials/sky.mat", []byte("blue")))
	r.CaptureCreatedAsset("materials/sky.mat")
	r.EndTask()

	_, err := f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	assert.False(t, f.assets.Exists("materials/sky.mat"))

	_, err = f.eng.Executor.RedoTask(task.ID)
	require.NoError(t, err)
	require.True(t, f.assets.Exists("materials/sky.mat"))
	data, err := f.assets.ReadBytes("materials/sky.mat")
	require.NoError(t, err)
	assert.Equal(t, []byte("blue"), data)
}

func TestRedoCreatedSourceAssetDoesNotTruncate(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder
	script := []byte("using UnityEngine;\nclass Bot {}\n")

	task := r.BeginTask("script", "")
	require.NoError(t, f.assets.WriteBytes("scripts/Bot.cs", script))
	r.CaptureCreatedAsset("scripts/Bot.cs")
	r.EndTask()

	_, err := f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	assert.False(t, f.assets.Exists("scripts/Bot.cs"))

	// The capture carries no byte backup for source files, so redo must
	// skip the snapshot instead of recreating the file empty.
	res, err := f.eng.Executor.RedoTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.False(t, f.assets.Exists("scripts/Bot.cs"))

	// Same guard when the file reappeared out of band before the redo.
	task = r.BeginTask("script", "")
	require.NoError(t, f.assets.WriteBytes("scripts/Bot.cs", script))
	r.CaptureCreatedAsset("scripts/Bot.cs")
	r.EndTask()
	_, err = f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	require.NoError(t, f.assets.WriteBytes("scripts/Bot.cs", script))

	res, err = f.eng.Executor.RedoTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	data, err := f.assets.ReadBytes("scripts/Bot.cs")
	require.NoError(t, err)
	assert.Equal(t, script, data)
}

func TestUndoUnknownTask(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Executor.UndoTask("task_missing")
	assert.Error(t, err)
	_, err = f.eng.Executor.RedoTask("task_missing")
	assert.Error(t, err)
}

func TestUndoSessionKeepsEarliestState(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder
	_, err := f.graph.Create("/", "Player", "")
	require.NoError(t, err)

	sid := r.BeginSession("edit spree")

	// Task one moves the player from the origin.
	r.CaptureModified("/Player")
	p1 := types.IdentityPose()
	p1.Position = r3.Vec{X: 1}
	require.NoError(t, f.graph.SetPose("/Player", p1))

	// Task two moves it again; its snapshot holds the intermediate pose.
	r.BeginTask("second move", "")
	r.CaptureModified("/Player")
	p2 := types.IdentityPose()
	p2.Position = r3.Vec{X: 2}
	require.NoError(t, f.graph.SetPose("/Player", p2))
	r.EndTask()
	r.EndSession()

	res, err := f.eng.Executor.UndoSession(sid)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reverted, "duplicate identities collapse to one revert")

	obj, _ := f.graph.Find("/Player")
	assert.Equal(t, types.IdentityPose(), obj.Pose(), "earliest capture wins across the session")

	// Session undo clears its tasks and adds nothing to the redo stack.
	doc := f.store.Load()
	assert.Empty(t, doc.Tasks)
	assert.Empty(t, doc.UndoneStack)
}

func TestUndoSessionUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Executor.UndoSession("sess_missing")
	assert.Error(t, err)
}

func TestHistorySurvivesRestart(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	task := r.BeginTask("build", "")
	obj, err := f.graph.Create("/", "Box", "cube")
	require.NoError(t, err)
	r.CaptureCreatedObject(obj)
	r.EndTask()

	// A restart drops in-memory state; the document reloads from disk.
	f.store.Reset()

	res, err := f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reverted)
	_, ok := f.graph.Find("/Box")
	assert.False(t, ok)
}
