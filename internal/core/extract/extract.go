// Package extract scans file text for inline annotation comments.
//
// Detection is pattern-based, not syntax-aware: a single regexp
// recognizes a marker preceded by a comment-opening token. Annotations
// inside string literals are a known false-positive source and are
// accepted as such.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// commentOpeners are the tokens that may precede a marker. Longer
// tokens come first so alternation prefers them.
const commentOpeners = `<!--|"""|'''|//|/\*|--|#|;|\*`

// commentClosers terminate the captured message; end of line otherwise.
const commentClosers = `\*/|-->|"""|'''`

// Match is one annotation candidate found in a file's text. Offsets are
// byte offsets into the scanned text covering the full matched comment.
type Match struct {
	Kind    string
	Message string
	Start   int
	End     int
}

// Extractor finds annotation comments using a configurable marker
// pattern (a regexp sub-expression such as "TODO|FIXME|HACK").
type Extractor struct {
	re *regexp.Regexp

	// Submatch indices of the named kind and msg groups. The marker
	// pattern is user input and may carry capture groups of its own,
	// which shift positional indices; names keep ours addressable.
	kind int
	msg  int
}

// New builds an extractor for the given marker pattern. The pattern is
// inserted verbatim into the marker group, so it is validated here once;
// a malformed pattern fails the whole scan rather than each file.
func New(markerPattern string) (*Extractor, error) {
	if strings.TrimSpace(markerPattern) == "" {
		return nil, fmt.Errorf("marker pattern is empty")
	}
	if _, err := regexp.Compile("(?i)" + markerPattern); err != nil {
		return nil, fmt.Errorf("invalid marker pattern %q: %w", markerPattern, err)
	}

	expr := fmt.Sprintf(
		`(?im)(?:%s)[ \t]*(?P<kind>%s)[ \t]*[:\-]?[ \t]*(?P<msg>.*?)[ \t]*(?:%s|$)`,
		commentOpeners, markerPattern, commentClosers,
	)

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile annotation expression: %w", err)
	}

	return &Extractor{
		re:   re,
		kind: re.SubexpIndex("kind"),
		msg:  re.SubexpIndex("msg"),
	}, nil
}

// Extract returns all annotation candidates in text, in source order.
// Candidates with an empty marker or an empty trimmed message are
// dropped silently.
func (e *Extractor) Extract(text string) []Match {
	idxs := e.re.FindAllStringSubmatchIndex(text, -1)
	if len(idxs) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(idxs))
	for _, m := range idxs {
		ks, ke := m[2*e.kind], m[2*e.kind+1]
		ms, me := m[2*e.msg], m[2*e.msg+1]
		if ks < 0 || ms < 0 {
			continue
		}

		kind := strings.ToUpper(strings.TrimSpace(text[ks:ke]))
		message := strings.TrimSpace(text[ms:me])
		if kind == "" || message == "" {
			continue
		}

		matches = append(matches, Match{
			Kind:    kind,
			Message: message,
			Start:   m[0],
			End:     m[1],
		})
	}

	return matches
}

// LineIndex converts byte offsets in a fixed text to 0-based line and
// column positions.
type LineIndex struct {
	// starts holds the byte offset of the first byte of each line.
	starts []int
}

// NewLineIndex builds the offset table for text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// Position returns the 0-based line and column for a byte offset.
// Offsets past the end of text report the last line.
func (li *LineIndex) Position(offset int) (line, column int) {
	line = sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	return line, offset - li.starts[line]
}
