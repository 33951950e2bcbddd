// Package output persists rendered eyemap artifacts under the eyemaps
// output directory.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// eyemapsSubdir is the fixed subdirectory all eyemap artifacts live under.
const eyemapsSubdir = "eyemaps"

// Writer writes artifacts with sanitized, deterministic filenames.
type Writer struct {
	baseDir string
}

// NewWriter creates a writer rooted at baseDir. Artifacts land in
// baseDir/eyemaps.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// Dir returns the eyemaps directory path.
func (w *Writer) Dir() string {
	return filepath.Join(w.baseDir, eyemapsSubdir)
}

// CleanFilename sanitizes a base name for filesystem use: spaces become
// underscores and parentheses are stripped.
func CleanFilename(base string) string {
	r := strings.NewReplacer(" ", "_", "(", "", ")", "")
	return r.Replace(base)
}

// Write persists one artifact and returns the path it was written to.
// The filename is derived from the grid's metric, neuron-type, and region
// descriptors plus the format extension, so repeated generations of the
// same grid overwrite the same file.
func (w *Writer) Write(baseName, extension string, data []byte) (string, error) {
	dir := w.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create eyemaps directory: %w", err)
	}

	path := filepath.Join(dir, CleanFilename(baseName)+extension)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return path, nil
}
