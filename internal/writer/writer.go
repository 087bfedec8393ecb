// Package writer persists dataset summaries as compact JSON files.
package writer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Writer writes output files into a single directory.
type Writer struct {
	dir string
}

// New creates a writer rooted at dir, creating it if needed.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "writer: create dir %s", dir)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteJSON marshals v compactly and atomically replaces name in the output
// directory. The map renderer reads these files while updates run, so a
// partially written file must never be observable.
func (w *Writer) WriteJSON(name string, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, eris.Wrapf(err, "writer: marshal %s", name)
	}

	tmp, err := os.CreateTemp(w.dir, "."+name+".tmp-*")
	if err != nil {
		return 0, eris.Wrapf(err, "writer: create temp for %s", name)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, eris.Wrapf(err, "writer: write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return 0, eris.Wrapf(err, "writer: close %s", name)
	}

	if err := os.Rename(tmpName, filepath.Join(w.dir, name)); err != nil {
		return 0, eris.Wrapf(err, "writer: rename %s", name)
	}
	return len(data), nil
}
