package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) *Dir {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}

	d, err := NewDir(root)
	require.NoError(t, err)
	return d
}

func TestNewDir(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewDir(filepath.Join(t.TempDir(), "nope"))
		require.ErrorIs(t, err, ErrNoRoot)
	})

	t.Run("regular file is not a root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := NewDir(path)
		require.ErrorIs(t, err, ErrNoRoot)
	})
}

func TestDir_ListFiles(t *testing.T) {
	d := writeTree(t, map[string]string{
		"README.md":         "# readme",
		"main.go":           "package main",
		"src/a.go":          "package src",
		"src/deep/b.go":     "package deep",
		"src/notes.txt":     "notes",
		"node_modules/x.js": "js",
		".git/config":       "[core]",
		"vendor/dep/dep.go": "package dep",
		"assets/app.min.js": "minified",
		"src/.hidden/h.go":  "package hidden",
	})

	t.Run("include and exclude globs", func(t *testing.T) {
		files, err := d.ListFiles(
			[]string{"**/*.go", "*.md"},
			[]string{"**/vendor/**"},
		)
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{
			"README.md",
			"main.go",
			"src/a.go",
			"src/deep/b.go",
		}, files)
	})

	t.Run("hidden directories are always skipped", func(t *testing.T) {
		files, err := d.ListFiles([]string{"**/*"}, nil)
		require.NoError(t, err)

		for _, f := range files {
			assert.False(t, strings.HasPrefix(f, ".git/"), "unexpected %s", f)
			assert.NotContains(t, f, ".hidden/")
		}
	})

	t.Run("exclude matches plain files", func(t *testing.T) {
		files, err := d.ListFiles([]string{"**/*"}, []string{"**/*.min.js", "**/node_modules/**"})
		require.NoError(t, err)

		assert.NotContains(t, files, "assets/app.min.js")
		assert.NotContains(t, files, "node_modules/x.js")
		assert.Contains(t, files, "src/notes.txt")
	})

	t.Run("stable order across calls", func(t *testing.T) {
		first, err := d.ListFiles([]string{"**/*.go"}, nil)
		require.NoError(t, err)
		second, err := d.ListFiles([]string{"**/*.go"}, nil)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("invalid glob", func(t *testing.T) {
		_, err := d.ListFiles([]string{"src/[unclosed"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid glob pattern")
	})
}

func TestDir_ReadText(t *testing.T) {
	d := writeTree(t, map[string]string{"a.go": "package a\n"})

	text, err := d.ReadText("a.go")
	require.NoError(t, err)
	assert.Equal(t, "package a\n", text)

	_, err = d.ReadText("missing.go")
	require.Error(t, err)
}

func TestDir_DeleteRange(t *testing.T) {
	t.Run("whole-line comment removes the line", func(t *testing.T) {
		content := "code()\n// TODO: x\nmore()\n"
		d := writeTree(t, map[string]string{"a.go": content})

		start := strings.Index(content, "// TODO: x")
		require.NoError(t, d.DeleteRange("a.go", start, start+len("// TODO: x")))

		text, err := d.ReadText("a.go")
		require.NoError(t, err)
		assert.Equal(t, "code()\nmore()\n", text)
	})

	t.Run("indented whole-line comment removes the line", func(t *testing.T) {
		content := "func f() {\n\t// FIXME: y\n}\n"
		d := writeTree(t, map[string]string{"a.go": content})

		start := strings.Index(content, "// FIXME: y")
		require.NoError(t, d.DeleteRange("a.go", start, start+len("// FIXME: y")))

		text, err := d.ReadText("a.go")
		require.NoError(t, err)
		assert.Equal(t, "func f() {\n}\n", text)
	})

	t.Run("trailing comment keeps the code line", func(t *testing.T) {
		content := "x := 1 // TODO: y\nnext()\n"
		d := writeTree(t, map[string]string{"a.go": content})

		start := strings.Index(content, "// TODO: y")
		require.NoError(t, d.DeleteRange("a.go", start, start+len("// TODO: y")))

		text, err := d.ReadText("a.go")
		require.NoError(t, err)
		assert.Equal(t, "x := 1 \nnext()\n", text)
	})

	t.Run("comment on the last line without newline", func(t *testing.T) {
		content := "code()\n// TODO: end"
		d := writeTree(t, map[string]string{"a.go": content})

		start := strings.Index(content, "// TODO: end")
		require.NoError(t, d.DeleteRange("a.go", start, len(content)))

		text, err := d.ReadText("a.go")
		require.NoError(t, err)
		assert.Equal(t, "code()\n", text)
	})

	t.Run("out-of-bounds range", func(t *testing.T) {
		d := writeTree(t, map[string]string{"a.go": "short\n"})

		require.Error(t, d.DeleteRange("a.go", 0, 100))
		require.Error(t, d.DeleteRange("a.go", -1, 3))
		require.Error(t, d.DeleteRange("a.go", 4, 2))
	})

	t.Run("missing file", func(t *testing.T) {
		d := writeTree(t, map[string]string{"a.go": "x\n"})
		require.Error(t, d.DeleteRange("missing.go", 0, 1))
	})
}
