package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/novafield/rewind/internal/types"
)

type captureNotifier struct {
	events []Event
}

func (n *captureNotifier) Publish(e Event) { n.events = append(n.events, e) }

func (n *captureNotifier) eventTypes() []string {
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func TestBackstopCapturesBeforeMutation(t *testing.T) {
	f := newFixture(t)
	AttachBackstop(f.graph, f.eng.Recorder)
	defer DetachBackstop(f.graph)

	_, err := f.graph.Create("/", "Player", "")
	require.NoError(t, err)

	task := f.eng.Recorder.BeginTask("move", "")

	// No explicit capture call: the hook records the pre-mutation state.
	pose := types.IdentityPose()
	pose.Position = r3.Vec{X: 7}
	require.NoError(t, f.graph.SetPose("/Player", pose))

	require.Len(t, task.Snapshots, 1)
	assert.Equal(t, "/Player", task.Snapshots[0].Identity)
	assert.Equal(t, types.ClassificationModified, task.Snapshots[0].Classification)
	f.eng.Recorder.EndTask()

	_, err = f.eng.Executor.UndoTask(task.ID)
	require.NoError(t, err)
	obj, _ := f.graph.Find("/Player")
	assert.Equal(t, types.IdentityPose(), obj.Pose())
}

func TestBackstopDoubleCaptureHarmless(t *testing.T) {
	f := newFixture(t)
	AttachBackstop(f.graph, f.eng.Recorder)
	defer DetachBackstop(f.graph)

	_, err := f.graph.Create("/", "Player", "")
	require.NoError(t, err)

	task := f.eng.Recorder.BeginTask("move", "")
	f.eng.Recorder.CaptureModified("/Player")
	require.NoError(t, f.graph.SetPose("/Player", types.IdentityPose()))
	assert.Len(t, task.Snapshots, 1)
}

func TestWithTaskOpensAndSeals(t *testing.T) {
	f := newFixture(t)
	n := &captureNotifier{}
	f.eng.SetNotifier(n)

	err := f.eng.WithTask("create box", "", func() error {
		obj, err := f.graph.Create("/", "Box", "cube")
		if err != nil {
			return err
		}
		f.eng.Recorder.CaptureCreatedObject(obj)
		return nil
	})
	require.NoError(t, err)

	assert.Nil(t, f.eng.Recorder.OpenTask())
	tasks, _ := f.eng.History()
	require.Len(t, tasks, 1)
	assert.Equal(t, "create box", tasks[0].Tag)
	assert.Equal(t, []string{EventTaskRecorded}, n.eventTypes())
}

func TestWithTaskReusesOpenTask(t *testing.T) {
	f := newFixture(t)

	open := f.eng.Recorder.BeginTask("outer", "")
	err := f.eng.WithTask("inner", "", func() error { return nil })
	require.NoError(t, err)
	assert.Same(t, open, f.eng.Recorder.OpenTask(), "an open task is reused, not replaced")
	f.eng.Recorder.EndTask()
}

func TestEngineEventsOnUndoRedo(t *testing.T) {
	f := newFixture(t)
	n := &captureNotifier{}
	f.eng.SetNotifier(n)

	task := f.eng.Recorder.BeginTask("build", "")
	obj, err := f.graph.Create("/", "Box", "cube")
	require.NoError(t, err)
	f.eng.Recorder.CaptureCreatedObject(obj)
	f.eng.Recorder.EndTask()

	_, err = f.eng.UndoTask(task.ID)
	require.NoError(t, err)
	_, err = f.eng.RedoTask(task.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{EventTaskUndone, EventTaskRedone}, n.eventTypes())
	assert.Equal(t, task.ID, n.events[0].TaskID)
}

func TestSessionsDerived(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	sid := r.BeginSession("spree")
	r.BeginTask("step two", "")
	r.EndSession()
	r.BeginTask("solo", "")
	r.EndTask()

	infos := f.eng.Sessions()
	require.Len(t, infos, 1)
	assert.Equal(t, sid, infos[0].ID)
	assert.Equal(t, 2, infos[0].TaskCount)
	assert.Len(t, infos[0].TaskIDs, 2)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	task := r.BeginTask("work", "")
	r.EndTask()

	require.NoError(t, f.eng.DeleteTask(task.ID))
	tasks, _ := f.eng.History()
	assert.Empty(t, tasks)

	assert.Error(t, f.eng.DeleteTask(task.ID))
}

func TestClearHistory(t *testing.T) {
	f := newFixture(t)
	r := f.eng.Recorder

	r.BeginTask("one", "")
	r.EndTask()
	r.BeginTask("two", "")
	r.EndTask()

	require.NoError(t, f.eng.ClearHistory())
	tasks, undone := f.eng.History()
	assert.Empty(t, tasks)
	assert.Empty(t, undone)

	f.store.Reset()
	tasks, _ = f.eng.History()
	assert.Empty(t, tasks, "clear persists to disk")
}
