// Package instances tracks running engine processes in a shared registry
// file so CLI tooling can find the instance serving a given project.
package instances

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// Instance describes one running engine process.
type Instance struct {
	ID        string    `json:"id"`
	PID       int       `json:"pid"`
	Target    string    `json:"target"`
	Port      string    `json:"port"`
	StartedAt time.Time `json:"started_at"`
}

// Registry is the on-disk instance registry. Multiple processes read and
// write the same file; a sibling lock file serializes the read-modify-write.
type Registry struct {
	path string
}

const (
	lockRetryWait = 50 * time.Millisecond
	lockAttempts  = 40
	lockStaleAge  = 30 * time.Second
)

// ErrLocked is returned when the registry lock cannot be acquired.
var ErrLocked = errors.New("instance registry is locked")

// DefaultPath places the registry under the user config directory.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "rewind", "registry.json")
}

// NewRegistry opens a registry at the given path, or the default path when
// empty.
func NewRegistry(path string) *Registry {
	if path == "" {
		path = DefaultPath()
	}
	return &Registry{path: path}
}

// Path returns the registry file location.
func (r *Registry) Path() string { return r.path }

// Register adds this process to the registry and returns its instance id.
// An existing entry for the same target is replaced.
func (r *Registry) Register(target, port string) (string, error) {
	inst := Instance{
		ID:        uuid.NewString(),
		PID:       os.Getpid(),
		Target:    target,
		Port:      port,
		StartedAt: time.Now().UTC(),
	}
	err := r.update(func(entries map[string]Instance) {
		entries[target] = inst
	})
	if err != nil {
		return "", err
	}
	return inst.ID, nil
}

// Deregister removes this process's entry. Entries registered by another
// live process for the same target are left alone.
func (r *Registry) Deregister(target string) error {
	return r.update(func(entries map[string]Instance) {
		if inst, ok := entries[target]; ok && inst.PID == os.Getpid() {
			delete(entries, target)
		}
	})
}

// List returns every registered instance, dead or alive.
func (r *Registry) List() ([]Instance, error) {
	entries, err := r.read()
	if err != nil {
		return nil, err
	}
	out := make([]Instance, 0, len(entries))
	for _, inst := range entries {
		out = append(out, inst)
	}
	return out, nil
}

// FindByTarget locates the instance registered for a project target.
func (r *Registry) FindByTarget(target string) (Instance, bool, error) {
	entries, err := r.read()
	if err != nil {
		return Instance{}, false, err
	}
	inst, ok := entries[target]
	return inst, ok, nil
}

// Prune drops entries whose process no longer exists.
func (r *Registry) Prune() error {
	return r.update(func(entries map[string]Instance) {
		for target, inst := range entries {
			if !processAlive(inst.PID) {
				delete(entries, target)
			}
		}
	})
}

func (r *Registry) read() (map[string]Instance, error) {
	entries := make(map[string]Instance)
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if err := sonic.Unmarshal(data, &entries); err != nil {
		// A torn or hand-edited file starts the registry over.
		return make(map[string]Instance), nil
	}
	return entries, nil
}

func (r *Registry) update(mutate func(map[string]Instance)) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := r.read()
	if err != nil {
		return err
	}
	mutate(entries)

	data, err := sonic.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// lock acquires the sibling lock file, breaking locks older than
// lockStaleAge that a crashed process left behind.
func (r *Registry) lock() (func(), error) {
	lockPath := r.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, err
	}
	for attempt := 0; attempt < lockAttempts; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAge {
			os.Remove(lockPath)
			continue
		}
		time.Sleep(lockRetryWait)
	}
	return nil, ErrLocked
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}
