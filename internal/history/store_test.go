package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novafield/rewind/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "history", "undo_history.json"), nil)
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	doc := s.Load()
	require.NotNil(t, doc)
	assert.NotNil(t, doc.Tasks)
	assert.NotNil(t, doc.UndoneStack)
	assert.Empty(t, doc.Tasks)
}

func TestLoadIsMemoized(t *testing.T) {
	s := newTestStore(t)
	assert.Same(t, s.Load(), s.Load())
}

func TestSaveAndReload(t *testing.T) {
	s := newTestStore(t)

	doc := s.Load()
	doc.Tasks = append(doc.Tasks, &types.WorkflowTask{
		ID:        "task_01",
		Tag:       "move player",
		Timestamp: time.Now().UTC(),
		Snapshots: []types.ObjectSnapshot{{
			Identity:       "/World/Player",
			Classification: types.ClassificationModified,
			Kind:           types.KindObject,
		}},
	})
	doc.UndoneStack = append(doc.UndoneStack, &types.WorkflowTask{ID: "task_00", Tag: "old"})
	require.NoError(t, s.Save())

	s.Reset()
	reloaded := s.Load()
	require.Len(t, reloaded.Tasks, 1)
	assert.Equal(t, "task_01", reloaded.Tasks[0].ID)
	assert.Equal(t, "/World/Player", reloaded.Tasks[0].Snapshots[0].Identity)
	require.Len(t, reloaded.UndoneStack, 1)
	assert.Equal(t, "task_00", reloaded.UndoneStack[0].ID)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undo_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(path, nil)
	doc := s.Load()
	assert.Empty(t, doc.Tasks)
	assert.Empty(t, doc.UndoneStack)
}

func TestLoadFiltersNilTasks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undo_history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tasks":[null,{"id":"task_01","tag":"x","timestamp":"2026-01-01T00:00:00Z","snapshots":[]}],"undoneStack":null}`), 0o644))

	s := NewStore(path, nil)
	doc := s.Load()
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, "task_01", doc.Tasks[0].ID)
	assert.NotNil(t, doc.UndoneStack)
}

func TestFindTask(t *testing.T) {
	doc := &types.HistoryDocument{
		Tasks:       []*types.WorkflowTask{{ID: "a"}, {ID: "b"}},
		UndoneStack: []*types.WorkflowTask{{ID: "c"}},
	}

	task, idx := doc.FindTask("b")
	require.NotNil(t, task)
	assert.Equal(t, 1, idx)

	task, idx = doc.FindTask("c")
	assert.Nil(t, task)
	assert.Equal(t, -1, idx)

	task, idx = doc.FindUndone("c")
	require.NotNil(t, task)
	assert.Equal(t, 0, idx)
}

func TestSaveOverwritesWholeFile(t *testing.T) {
	s := newTestStore(t)

	doc := s.Load()
	doc.Tasks = append(doc.Tasks, &types.WorkflowTask{ID: "a"}, &types.WorkflowTask{ID: "b"})
	require.NoError(t, s.Save())

	doc.Tasks = doc.Tasks[:1]
	require.NoError(t, s.Save())

	s.Reset()
	reloaded := s.Load()
	require.Len(t, reloaded.Tasks, 1)
	assert.Equal(t, "a", reloaded.Tasks[0].ID)
}
