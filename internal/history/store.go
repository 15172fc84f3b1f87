// Package history persists the engine's task list and redo stack as a
// single JSON document. The file lives outside version control and is
// tolerant of being deleted: the next Load yields an empty store.
package history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/novafield/rewind/internal/infrastructure/logging"
	"github.com/novafield/rewind/internal/types"
	"go.uber.org/zap"
)

// Store owns the durable history document. Load is lazy and memoized;
// Save is a whole-file, last-writer-wins overwrite. There is deliberately
// no cross-process locking here — contrast with the instances registry,
// which coordinates multiple editor processes.
type Store struct {
	path   string
	logger *logging.Logger
	doc    *types.HistoryDocument
}

// NewStore creates a store backed by the given file path.
func NewStore(path string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{path: path, logger: logger.Named("history")}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load returns the history document, reading it from disk on first use.
// A missing or corrupt file yields an empty document rather than an error;
// nil lists are initialized and nil task entries filtered out.
func (s *Store) Load() *types.HistoryDocument {
	if s.doc != nil {
		return s.doc
	}
	s.doc = s.read()
	return s.doc
}

func (s *Store) read() *types.HistoryDocument {
	doc := &types.HistoryDocument{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read history file, starting empty",
				zap.String("path", s.path), zap.Error(err))
		}
		return sanitize(doc)
	}
	if err := sonic.Unmarshal(data, doc); err != nil {
		s.logger.Warn("history file is corrupt, starting empty",
			zap.String("path", s.path), zap.Error(err))
		return sanitize(&types.HistoryDocument{})
	}
	return sanitize(doc)
}

func sanitize(doc *types.HistoryDocument) *types.HistoryDocument {
	doc.Tasks = compact(doc.Tasks)
	doc.UndoneStack = compact(doc.UndoneStack)
	return doc
}

func compact(tasks []*types.WorkflowTask) []*types.WorkflowTask {
	out := make([]*types.WorkflowTask, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Save writes the current document to disk, pretty-printed, overwriting
// whatever is there.
func (s *Store) Save() error {
	doc := s.Load()
	data, err := sonic.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Reset drops the in-memory document so the next Load re-reads the file.
// This is what a process restart does implicitly.
func (s *Store) Reset() {
	s.doc = nil
}
