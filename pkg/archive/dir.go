package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Dir implements Sink on top of a local directory. All names are
// resolved relative to the configured root.
type Dir struct {
	root string
}

// NewDir creates a Dir sink rooted at dir. The directory is created
// (with parents) if it does not already exist.
func NewDir(dir string) (*Dir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: abs}, nil
}

// Create opens the named export for writing, creating parent directories
// as needed.
func (d *Dir) Create(_ context.Context, name string) (io.WriteCloser, error) {
	full := filepath.Join(d.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return os.Create(full)
}

var _ Sink = (*Dir)(nil)
