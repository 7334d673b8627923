package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultPattern = "TODO|FIXME|HACK|NOTE|XXX|BUG"

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()

	ex, err := New(defaultPattern)
	require.NoError(t, err)
	return ex
}

func TestNew(t *testing.T) {
	t.Run("rejects empty pattern", func(t *testing.T) {
		_, err := New("  ")
		require.Error(t, err)
	})

	t.Run("rejects malformed pattern", func(t *testing.T) {
		_, err := New("TODO|(")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid marker pattern")
	})

	t.Run("pattern with its own capture groups", func(t *testing.T) {
		ex, err := New("(TODO|FIXME)")
		require.NoError(t, err)

		matches := ex.Extract("// TODO: fix this")
		require.Len(t, matches, 1)
		assert.Equal(t, "TODO", matches[0].Kind)
		assert.Equal(t, "fix this", matches[0].Message)
	})

	t.Run("nested capture groups", func(t *testing.T) {
		ex, err := New("((TO)(DO))|FIXME")
		require.NoError(t, err)

		matches := ex.Extract("# fixme handle overflow\n")
		require.Len(t, matches, 1)
		assert.Equal(t, "FIXME", matches[0].Kind)
		assert.Equal(t, "handle overflow", matches[0].Message)
	})

	t.Run("accepts custom alternation", func(t *testing.T) {
		ex, err := New("WIP|REVIEW")
		require.NoError(t, err)

		matches := ex.Extract("// WIP: still cooking\n")
		require.Len(t, matches, 1)
		assert.Equal(t, "WIP", matches[0].Kind)
	})
}

func TestExtract(t *testing.T) {
	ex := newTestExtractor(t)

	t.Run("line comment with separator", func(t *testing.T) {
		matches := ex.Extract("// TODO: fix this")
		require.Len(t, matches, 1)
		assert.Equal(t, "TODO", matches[0].Kind)
		assert.Equal(t, "fix this", matches[0].Message)
	})

	t.Run("hash comment without separator", func(t *testing.T) {
		matches := ex.Extract("# FIXME add validation")
		require.Len(t, matches, 1)
		assert.Equal(t, "FIXME", matches[0].Kind)
		assert.Equal(t, "add validation", matches[0].Message)
	})

	t.Run("block comment stops at closer", func(t *testing.T) {
		matches := ex.Extract("/* HACK work around driver bug */ int x;")
		require.Len(t, matches, 1)
		assert.Equal(t, "HACK", matches[0].Kind)
		assert.Equal(t, "work around driver bug", matches[0].Message)
	})

	t.Run("markup comment stops at closer", func(t *testing.T) {
		matches := ex.Extract("<!-- TODO: update docs -->")
		require.Len(t, matches, 1)
		assert.Equal(t, "update docs", matches[0].Message)
	})

	t.Run("marker is case-insensitive and normalized", func(t *testing.T) {
		matches := ex.Extract("// todo: lowercase marker")
		require.Len(t, matches, 1)
		assert.Equal(t, "TODO", matches[0].Kind)
	})

	t.Run("empty message is dropped silently", func(t *testing.T) {
		assert.Empty(t, ex.Extract("// TODO:"))
		assert.Empty(t, ex.Extract("// TODO   "))
	})

	t.Run("marker without comment opener is ignored", func(t *testing.T) {
		assert.Empty(t, ex.Extract("TODO: not a comment"))
	})

	t.Run("multiple annotations in source order", func(t *testing.T) {
		text := strings.Join([]string{
			"package main",
			"// TODO: first",
			"func main() {",
			"\t// FIXME: second",
			"}",
		}, "\n")

		matches := ex.Extract(text)
		require.Len(t, matches, 2)
		assert.Equal(t, "first", matches[0].Message)
		assert.Equal(t, "second", matches[1].Message)
		assert.Less(t, matches[0].Start, matches[1].Start)
	})

	t.Run("offsets cover the full matched comment", func(t *testing.T) {
		text := "package main\n// TODO: check offsets\n"

		matches := ex.Extract(text)
		require.Len(t, matches, 1)
		assert.Equal(t, "// TODO: check offsets", text[matches[0].Start:matches[0].End])
	})

	t.Run("deterministic on unchanged text", func(t *testing.T) {
		text := "// TODO: a\n# FIXME b\n/* NOTE c */\n"

		first := ex.Extract(text)
		second := ex.Extract(text)
		assert.Equal(t, first, second)
	})
}

func TestLineIndex(t *testing.T) {
	text := "one\ntwo\n\nfour"
	li := NewLineIndex(text)

	tests := []struct {
		name   string
		offset int
		line   int
		column int
	}{
		{"start of text", 0, 0, 0},
		{"middle of first line", 2, 0, 2},
		{"start of second line", 4, 1, 0},
		{"empty line", 8, 2, 0},
		{"last line", 9, 3, 0},
		{"end of text", 12, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, col := li.Position(tt.offset)
			assert.Equal(t, tt.line, line)
			assert.Equal(t, tt.column, col)
		})
	}
}
