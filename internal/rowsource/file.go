package rowsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource reads a result set payload from a JSON document on disk.
type FileSource struct {
	Path string
}

// NewFileSource builds a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch loads and decodes the document.
func (f *FileSource) Fetch(ctx context.Context) (Payload, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Payload{}, fmt.Errorf("read result set file: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, fmt.Errorf("decode result set file %s: %w", f.Path, err)
	}
	return payload, nil
}

var _ Source = (*FileSource)(nil)
