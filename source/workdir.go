package source

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workdir is the scratch space for extracted frame sequences. Frames live in a
// subdirectory the player creates under root; root itself is never modified beyond
// creating it, so a user supplied work_dir keeps its own files.
type Workdir struct {
	root string
	path string
}

// NewWorkdir places the scratch subdirectory under root, or under $TMPDIR when root
// is empty. Nothing is created until the first Reset.
func NewWorkdir(root string) (*Workdir, error) {
	if root == "" {
		root = os.TempDir()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, newError(KindIO, "workdir", root, err)
	}
	if err := guardWorkdir(abs); err != nil {
		return nil, err
	}
	return &Workdir{root: abs}, nil
}

func guardWorkdir(p string) error {
	clean := filepath.Clean(p)
	if clean == string(filepath.Separator) || clean == "." || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return newError(KindIO, "workdir", p, fmt.Errorf("refusing to use %q as scratch directory", p))
	}
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) == clean {
		return newError(KindIO, "workdir", p, fmt.Errorf("refusing to use home directory as scratch directory"))
	}
	return nil
}

// Root is the directory the scratch subdirectory is created in.
func (w *Workdir) Root() string { return w.root }

// Path is the owned scratch subdirectory, empty before the first Reset.
func (w *Workdir) Path() string { return w.path }

// Reset leaves an empty owned subdirectory, creating it on first use.
func (w *Workdir) Reset() error {
	if w.path != "" {
		if err := os.RemoveAll(w.path); err != nil {
			return newError(KindIO, "workdir", w.path, err)
		}
		w.path = ""
	}
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return newError(KindIO, "workdir", w.root, err)
	}
	dir, err := os.MkdirTemp(w.root, "asciiplay-*")
	if err != nil {
		return newError(KindIO, "workdir", w.root, err)
	}
	w.path = dir
	return nil
}

// Remove deletes the owned subdirectory. Root and anything else in it stay.
func (w *Workdir) Remove() error {
	if w.path == "" {
		return nil
	}
	if err := os.RemoveAll(w.path); err != nil {
		return newError(KindIO, "workdir", w.path, err)
	}
	w.path = ""
	return nil
}
