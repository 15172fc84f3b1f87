package engine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Asset byte backups are gzip-compressed before landing in the history
// document; raw texture and mesh files dwarf everything else in the store.

func compressBackup(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress backup: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressBackup(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress backup: %w", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress backup: %w", err)
	}
	return out, nil
}
