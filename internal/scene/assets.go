package scene

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/crypto/blake2b"
)

// DefaultSourcePatterns match compiled-source assets. Their file content
// drives a host recompilation step, so they are excluded from byte-level
// backup and restore: rewriting them during undo would trigger unwanted
// rebuild cycles.
var DefaultSourcePatterns = []string{
	"**/*.cs",
	"**/*.js",
	"**/*.shader",
	"**/*.asmdef",
}

var sourceMIMEs = []string{
	"text/x-csharp",
	"text/javascript",
	"application/javascript",
}

// AssetInfo describes one file-backed asset on disk.
type AssetInfo struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	MIME   string `json:"mime,omitempty"`
	Source bool   `json:"source"`
}

// Assets is the file-backed asset store rooted at a single directory. All
// paths are relative to the root; traversal outside it is rejected.
type Assets struct {
	root           string
	sourcePatterns []string
	importHook     func(resourcePath string) error
}

// NewAssets creates an asset store. Nil patterns fall back to
// DefaultSourcePatterns.
func NewAssets(root string, sourcePatterns []string) *Assets {
	if sourcePatterns == nil {
		sourcePatterns = DefaultSourcePatterns
	}
	return &Assets{root: root, sourcePatterns: sourcePatterns}
}

// Root returns the asset root directory.
func (a *Assets) Root() string { return a.root }

// SetImportHook installs the host's re-import callback, invoked after an
// asset's bytes change on disk so the host refreshes its imported form.
func (a *Assets) SetImportHook(fn func(resourcePath string) error) {
	a.importHook = fn
}

func (a *Assets) abs(resourcePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(resourcePath))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid asset path %q", resourcePath)
	}
	return filepath.Join(a.root, clean), nil
}

// Exists reports whether the asset's backing file is present.
func (a *Assets) Exists(resourcePath string) bool {
	full, err := a.abs(resourcePath)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// ReadBytes returns the asset's raw file content.
func (a *Assets) ReadBytes(resourcePath string) ([]byte, error) {
	full, err := a.abs(resourcePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %q: %w", resourcePath, err)
	}
	return data, nil
}

// WriteBytes overwrites the asset's backing file and triggers re-import.
func (a *Assets) WriteBytes(resourcePath string, data []byte) error {
	full, err := a.abs(resourcePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create asset dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write asset %q: %w", resourcePath, err)
	}
	return a.reimport(resourcePath)
}

// Delete removes the asset's backing file.
func (a *Assets) Delete(resourcePath string) error {
	full, err := a.abs(resourcePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete asset %q: %w", resourcePath, err)
	}
	return nil
}

func (a *Assets) reimport(resourcePath string) error {
	if a.importHook == nil {
		return nil
	}
	return a.importHook(resourcePath)
}

// Hash returns the hex BLAKE2b-256 digest of the asset's file content.
func (a *Assets) Hash(resourcePath string) (string, error) {
	data, err := a.ReadBytes(resourcePath)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// IsSource reports whether the asset is a compiled-source file. Pattern
// matches decide first; for files on disk an MIME sniff catches sources
// with unconventional extensions.
func (a *Assets) IsSource(resourcePath string) bool {
	rel := filepath.ToSlash(resourcePath)
	for _, pattern := range a.sourcePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	full, err := a.abs(resourcePath)
	if err != nil {
		return false
	}
	mtype, err := mimetype.DetectFile(full)
	if err != nil {
		return false
	}
	for _, m := range sourceMIMEs {
		if mtype.Is(m) {
			return true
		}
	}
	return false
}

// Scan walks the asset root and describes every file found.
func (a *Assets) Scan() ([]AssetInfo, error) {
	var infos []AssetInfo
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(a.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		info := AssetInfo{Path: rel, Source: a.IsSource(rel)}
		if fi, statErr := d.Info(); statErr == nil {
			info.Size = fi.Size()
		}
		if mtype, mErr := mimetype.DetectFile(path); mErr == nil {
			info.MIME = mtype.String()
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan assets: %w", err)
	}
	return infos, nil
}
