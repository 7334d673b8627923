// Package workspace is the filesystem collaborator for the annotation
// index: it enumerates files by glob, reads text, reports modification
// fingerprints, and applies byte-range deletions.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoRoot is returned when the workspace root does not exist or is
// not a directory.
var ErrNoRoot = errors.New("workspace root not found")

// Workspace abstracts the host filesystem for the scan engine.
type Workspace interface {
	// ListFiles returns the union of files matching the include globs,
	// minus any matching the exclude globs, deduplicated, in a stable
	// walk order. Paths are relative to the workspace root.
	ListFiles(include, exclude []string) ([]string, error)

	// ReadText returns the file's content.
	ReadText(path string) (string, error)

	// Stat returns the file's modification time.
	Stat(path string) (time.Time, error)

	// DeleteRange removes the byte range [start, end) from the file and
	// writes it back. If removing the range leaves its line blank, the
	// line is removed entirely.
	DeleteRange(path string, start, end int) error
}

// Dir is a Workspace rooted at a directory on the local filesystem.
type Dir struct {
	root string
}

// NewDir creates a workspace rooted at root. Returns ErrNoRoot when the
// directory does not exist.
func NewDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoRoot, root)
	}
	return &Dir{root: root}, nil
}

// Root returns the workspace root directory.
func (d *Dir) Root() string {
	return d.root
}

// Abs returns the absolute path for a workspace-relative path.
func (d *Dir) Abs(path string) string {
	return filepath.Join(d.root, path)
}

// ListFiles walks the root once and matches each relative path against
// the include and exclude globs with doublestar.
func (d *Dir) ListFiles(include, exclude []string) ([]string, error) {
	for _, pattern := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	var files []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(d.root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if rel != "." && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			if matchAny(exclude, rel) || matchAny(exclude, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !matchAny(include, rel) || matchAny(exclude, rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}

	return files, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ReadText returns the file's content as a string.
func (d *Dir) ReadText(path string) (string, error) {
	data, err := os.ReadFile(d.Abs(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// Stat returns the file's modification time.
func (d *Dir) Stat(path string) (time.Time, error) {
	info, err := os.Stat(d.Abs(path))
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}

// DeleteRange removes [start, end) from the file. When the removal
// leaves the surrounding line empty, the whole line goes with it.
func (d *Dir) DeleteRange(path string, start, end int) error {
	abs := d.Abs(path)

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if start < 0 || end < start || end > len(data) {
		return fmt.Errorf("range [%d, %d) out of bounds for %s", start, end, path)
	}

	lineStart := start
	for lineStart > 0 && data[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := end
	for lineEnd < len(data) && data[lineEnd] != '\n' {
		lineEnd++
	}

	if isBlank(data[lineStart:start]) && isBlank(data[end:lineEnd]) {
		// Whole line is the annotation; drop the line and its newline.
		start = lineStart
		end = lineEnd
		if end < len(data) {
			end++
		}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	out := make([]byte, 0, len(data)-(end-start))
	out = append(out, data[:start]...)
	out = append(out, data[end:]...)

	if err := os.WriteFile(abs, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}
