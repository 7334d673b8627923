// Package annotation defines the inline annotation domain model and the
// in-memory index built over it.
package annotation

// Annotation represents a single discovered marker occurrence (TODO,
// FIXME, ...) with its message and location.
type Annotation struct {
	Kind    string `json:"kind"`    // normalized marker label, uppercased
	Message string `json:"message"` // free text captured after the marker
	File    string `json:"file"`
	Line    int    `json:"line"`   // 0-based
	Column  int    `json:"column"` // 0-based
	Start   int    `json:"start"`  // byte offset of the full matched comment
	End     int    `json:"end"`
	Author  string `json:"author,omitempty"` // empty when lookup disabled or failed
}

// Key identifies an annotation across index rebuilds. Two annotations
// are the same logical entity iff their keys are equal.
type Key struct {
	File   string
	Line   int
	Column int
}

// Key returns the identity key for the annotation.
func (a Annotation) Key() Key {
	return Key{File: a.File, Line: a.Line, Column: a.Column}
}

// Same reports whether two annotations refer to the same location.
func (a Annotation) Same(b Annotation) bool {
	return a.Key() == b.Key()
}
