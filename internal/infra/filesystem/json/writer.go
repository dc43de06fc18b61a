package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

// Writer writes files atomically: readers see either the old or the new content.
type Writer struct {
	perm os.FileMode
}

// NewWriter creates a new filesystem writer
func NewWriter() *Writer {
	return &Writer{perm: 0644}
}

// WriteJSON writes data as indented JSON to the specified path
func (w *Writer) WriteJSON(path string, data any) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return w.WriteBytes(path, append(content, '\n'))
}

// WriteBytes writes raw bytes to the specified path
func (w *Writer) WriteBytes(path string, data []byte) error {
	if err := w.ensureDir(path); err != nil {
		return err
	}

	if err := atomicwriter.WriteFile(path, data, w.perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ensureDir ensures the parent directory of a file exists
func (w *Writer) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
