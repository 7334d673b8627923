// Package blame resolves annotation authorship via git blame.
package blame

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/marker/pkg/executil"
)

// lookupTimeout bounds a single blame invocation so a hung git call
// stalls at most one annotation, not the whole batch.
const lookupTimeout = 500 * time.Millisecond

// Resolver looks up the author of a single line using the git
// command-line tool. All failures are best-effort: the caller receives
// ok=false and stores the annotation without attribution.
type Resolver struct {
	gitPath string
	exec    executil.Executor
}

// NewResolver creates a resolver using the given git binary path.
func NewResolver(gitPath string, exec executil.Executor) *Resolver {
	return &Resolver{gitPath: gitPath, exec: exec}
}

// Author returns the author of the given 0-based line in the file,
// relative to dir. ok is false when the file is untracked, blame fails,
// or the lookup times out.
func (r *Resolver) Author(ctx context.Context, dir, path string, line int) (author string, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	// git blame lines are 1-based.
	rng := strconv.Itoa(line+1) + "," + strconv.Itoa(line+1)
	out, err := r.exec.RunDir(ctx, dir, r.gitPath, "blame", "-L", rng, "--porcelain", "--", path)
	if err != nil {
		return "", false
	}

	return parseAuthor(string(out))
}

// parseAuthor extracts the author name from porcelain blame output.
// Uncommitted lines report "Not Committed Yet" and are treated as
// having no author.
func parseAuthor(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		name, found := strings.CutPrefix(line, "author ")
		if !found {
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" || name == "Not Committed Yet" {
			return "", false
		}
		return name, true
	}
	return "", false
}
