package inbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/edital/internal/checksum"
)

// File describes one outline file in the inbox directory.
type File struct {
	Name     string // base name, e.g. "Direito.txt"
	Stem     string // subject name, e.g. "Direito"
	Checksum string
}

// Dir is a flat directory of outline files.
type Dir struct {
	root string
}

// NewDir opens root, which must already exist.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("inbox: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("inbox: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox: root is not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string {
	return d.root
}

// IsOutline reports whether name is an outline file the inbox handles.
func IsOutline(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".txt" || ext == ".md"
}

// Stem returns the subject name for an outline file name.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}

// safePath rejects anything but a plain file name inside the root.
func (d *Dir) safePath(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || cleaned == "." || cleaned == ".." {
		return "", fmt.Errorf("inbox: invalid file name: %s", name)
	}
	return filepath.Join(d.root, cleaned), nil
}

// List returns the outline files in the directory, sorted by name.
func (d *Dir) List() ([]File, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("inbox: list: %w", err)
	}
	var out []File
	for _, e := range entries {
		if e.IsDir() || !IsOutline(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("inbox: read %s: %w", e.Name(), err)
		}
		out = append(out, File{Name: e.Name(), Stem: Stem(e.Name()), Checksum: checksum.Sum(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the raw bytes of a file.
func (d *Dir) Read(name string) ([]byte, error) {
	abs, err := d.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("inbox: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file, fsync, rename.
func (d *Dir) Write(name string, content []byte) error {
	abs, err := d.safePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, ".edital-tmp-*")
	if err != nil {
		return fmt.Errorf("inbox: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("inbox: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("inbox: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("inbox: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("inbox: rename: %w", err)
	}
	success = true
	return nil
}

// FileName returns the export file name for a subject name.
func FileName(subject string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "\x00", "")
	name := strings.TrimSpace(r.Replace(subject))
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		name = "_" + name
	}
	return name + ".txt"
}
