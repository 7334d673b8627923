package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/marker/internal/core/annotation"
	"github.com/colonyops/marker/internal/core/config"
)

type fakeFile struct {
	text  string
	mtime time.Time
}

// fakeWorkspace is an in-memory workspace.Workspace. Enumeration
// returns files in sorted order; gates block ReadText to hold the
// background phase at a known point.
type fakeWorkspace struct {
	mu        sync.Mutex
	files     map[string]*fakeFile
	reads     map[string]int
	gates     map[string]chan struct{}
	listErr   error
	deleteErr error
	listExtra []string
	clock     time.Time
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{
		files: make(map[string]*fakeFile),
		reads: make(map[string]int),
		gates: make(map[string]chan struct{}),
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (w *fakeWorkspace) add(path, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clock = w.clock.Add(time.Second)
	w.files[path] = &fakeFile{text: text, mtime: w.clock}
}

// touch replaces a file's content and bumps its fingerprint.
func (w *fakeWorkspace) touch(path, text string) {
	w.add(path, text)
}

func (w *fakeWorkspace) gate(path string) chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan struct{})
	w.gates[path] = ch
	return ch
}

func (w *fakeWorkspace) readCount(path string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reads[path]
}

func (w *fakeWorkspace) ListFiles(include, exclude []string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.listErr != nil {
		return nil, w.listErr
	}

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return append(files, w.listExtra...), nil
}

func (w *fakeWorkspace) ReadText(path string) (string, error) {
	w.mu.Lock()
	gate := w.gates[path]
	w.mu.Unlock()

	if gate != nil {
		<-gate
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	w.reads[path]++
	return f.text, nil
}

func (w *fakeWorkspace) Stat(path string) (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.files[path]
	if !ok {
		return time.Time{}, fmt.Errorf("no such file: %s", path)
	}
	return f.mtime, nil
}

func (w *fakeWorkspace) DeleteRange(path string, start, end int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.deleteErr != nil {
		return w.deleteErr
	}

	f, ok := w.files[path]
	if !ok {
		return fmt.Errorf("no such file: %s", path)
	}
	if start < 0 || end < start || end > len(f.text) {
		return fmt.Errorf("range out of bounds")
	}

	f.text = f.text[:start] + f.text[end:]
	w.clock = w.clock.Add(time.Second)
	f.mtime = w.clock
	return nil
}

func newTestService(t *testing.T, ws *fakeWorkspace) *Service {
	t.Helper()

	cfg := &config.Config{
		Pattern:   "TODO|FIXME|HACK",
		Include:   []string{"**/*"},
		BatchSize: 20,
		Root:      "/repo",
	}
	svc := NewService(cfg, ws, nil, zerolog.Nop())
	t.Cleanup(svc.Close)
	return svc
}

// completionWaiter subscribes before a scan starts so the terminal
// snapshot is never missed.
func completionWaiter(t *testing.T, svc *Service) func() Status {
	t.Helper()

	done := make(chan Status, 1)
	unsubscribe := svc.SubscribeStatus(func(st Status) {
		if st.State == StateComplete || st.State == StateFailed {
			select {
			case done <- st:
			default:
			}
		}
	})
	t.Cleanup(unsubscribe)

	return func() Status {
		select {
		case st := <-done:
			return st
		case <-time.After(5 * time.Second):
			t.Fatal("scan did not complete in time")
			return Status{}
		}
	}
}

func scanAndWait(t *testing.T, svc *Service) []annotation.Annotation {
	t.Helper()

	wait := completionWaiter(t, svc)
	first, err := svc.InitializeScan(context.Background())
	require.NoError(t, err)
	wait()
	return first
}

func TestService_InitializeScan(t *testing.T) {
	ctx := context.Background()

	t.Run("first batch returns synchronously, background continues", func(t *testing.T) {
		ws := newFakeWorkspace()
		for i := 0; i < 45; i++ {
			ws.add(fmt.Sprintf("f%02d.go", i), fmt.Sprintf("// TODO: task %02d\n", i))
		}
		// Hold the background phase at its first file.
		gate := ws.gate("f20.go")

		svc := newTestService(t, ws)
		wait := completionWaiter(t, svc)

		first, err := svc.InitializeScan(ctx)
		require.NoError(t, err)

		require.Len(t, first, 20)
		for i, a := range first {
			assert.Equal(t, fmt.Sprintf("f%02d.go", i), a.File)
			assert.Equal(t, "TODO", a.Kind)
		}
		assert.True(t, svc.InProgress())
		assert.Equal(t, 20, svc.TotalCount())

		close(gate)
		st := wait()

		assert.Equal(t, StateComplete, st.State)
		assert.Equal(t, 45, st.FilesProcessed)
		assert.Equal(t, 45, st.TotalFiles)
		assert.Equal(t, 45, svc.TotalCount())
		assert.False(t, svc.InProgress())
	})

	t.Run("small workspace completes synchronously", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: one\n// FIXME: two\n")

		svc := newTestService(t, ws)
		first := scanAndWait(t, svc)

		require.Len(t, first, 2)
		assert.False(t, svc.InProgress())
		assert.Equal(t, StateComplete, svc.Status().State)
	})

	t.Run("annotations carry line and column positions", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "package a\n\tfunc x() {} // TODO: inline\n")

		svc := newTestService(t, ws)
		first := scanAndWait(t, svc)

		require.Len(t, first, 1)
		assert.Equal(t, 1, first[0].Line)
		assert.Equal(t, 13, first[0].Column)
	})

	t.Run("per-file read failure skips the file only", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: survives\n")
		ws.add("b.go", "// TODO: unreadable\n")
		ws.mu.Lock()
		delete(ws.files, "b.go")
		ws.listExtra = append(ws.listExtra, "b.go") // still enumerated, stat fails
		ws.mu.Unlock()

		svc := newTestService(t, ws)
		scanAndWait(t, svc)

		assert.Equal(t, 1, svc.TotalCount())
		st := svc.Status()
		assert.Equal(t, StateComplete, st.State)
		assert.Equal(t, 2, st.FilesProcessed)
	})

	t.Run("duplicate enumeration entries extracted once", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: once\n")
		ws.listExtra = []string{"a.go", "a.go"}

		svc := newTestService(t, ws)
		scanAndWait(t, svc)

		assert.Equal(t, 1, svc.TotalCount())
		assert.Equal(t, 1, ws.readCount("a.go"))
		assert.Equal(t, 1, svc.Status().TotalFiles)
	})

	t.Run("enumeration failure fails the scan", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.listErr = errors.New("no workspace root")

		svc := newTestService(t, ws)
		_, err := svc.InitializeScan(ctx)

		require.Error(t, err)
		assert.Equal(t, StateFailed, svc.Status().State)
	})

	t.Run("malformed pattern fails the scan up front", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: never seen\n")

		svc := newTestService(t, ws)
		svc.cfg.Pattern = "TODO|("

		_, err := svc.InitializeScan(ctx)
		require.Error(t, err)
		assert.Equal(t, StateFailed, svc.Status().State)
		assert.Zero(t, svc.TotalCount())
	})
}

func TestService_Incremental(t *testing.T) {
	t.Run("unchanged files are replayed without re-reading", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: alpha\n")
		ws.add("b.go", "// TODO: beta\n")

		svc := newTestService(t, ws)
		scanAndWait(t, svc)
		require.Equal(t, 2, svc.TotalCount())

		ws.touch("b.go", "// TODO: beta revised\n")
		scanAndWait(t, svc)

		assert.Equal(t, 2, svc.TotalCount())
		assert.Equal(t, 1, ws.readCount("a.go"))
		assert.Equal(t, 2, ws.readCount("b.go"))

		inB := svc.AnnotationsInFile("b.go")
		require.Len(t, inB, 1)
		assert.Equal(t, "beta revised", inB[0].Message)
	})

	t.Run("refresh re-extracts everything", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: alpha\n")

		svc := newTestService(t, ws)
		scanAndWait(t, svc)
		require.Equal(t, 1, ws.readCount("a.go"))

		wait := completionWaiter(t, svc)
		_, err := svc.Refresh(context.Background())
		require.NoError(t, err)
		wait()

		assert.Equal(t, 2, ws.readCount("a.go"))
		assert.Equal(t, 1, svc.TotalCount())
	})
}

func TestService_NextBatch(t *testing.T) {
	ws := newFakeWorkspace()
	for i := 0; i < 9; i++ {
		ws.add(fmt.Sprintf("f%d.go", i), fmt.Sprintf("// TODO: %d\n", i))
	}

	svc := newTestService(t, ws)
	scanAndWait(t, svc)

	t.Run("increasing offsets reconstruct the sequence", func(t *testing.T) {
		var got []annotation.Annotation
		for offset := 0; ; offset += 4 {
			batch := svc.NextBatch(offset, 4)
			if len(batch) == 0 {
				break
			}
			got = append(got, batch...)
		}
		assert.Equal(t, svc.All(), got)
	})

	t.Run("empty result signals exhaustion", func(t *testing.T) {
		assert.Empty(t, svc.NextBatch(9, 4))
	})
}

func TestService_ChangeEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("changed file with annotations triggers rescan", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: original\n")

		svc := newTestService(t, ws)
		scanAndWait(t, svc)

		ws.touch("a.go", "// TODO: first\n// TODO: second\n")
		svc.HandleFileChanged(ctx, "a.go")

		assert.Equal(t, 2, svc.CountInFile("a.go"))
		assert.Equal(t, 2, svc.TotalCount())
	})

	t.Run("changed file without annotations does not rescan", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: only one\n")
		ws.add("plain.go", "package plain\n")

		svc := newTestService(t, ws)
		scanAndWait(t, svc)
		reads := ws.readCount("a.go")

		ws.touch("plain.go", "package plain // still no annotations\n")
		svc.HandleFileChanged(ctx, "plain.go")

		assert.Equal(t, reads, ws.readCount("a.go"))
		assert.Equal(t, 1, svc.TotalCount())
	})

	t.Run("deleted file drops its annotations from both views", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("gone.go", "// TODO: one\n// TODO: two\n// TODO: three\n")
		ws.add("keep.go", "// TODO: keeper\n")

		svc := newTestService(t, ws)
		scanAndWait(t, svc)
		require.Equal(t, 4, svc.TotalCount())

		svc.HandleFileDeleted("gone.go")

		assert.Equal(t, 1, svc.TotalCount())
		assert.Zero(t, svc.CountInFile("gone.go"))
		assert.Empty(t, svc.AnnotationsInFile("gone.go"))
		for _, a := range svc.All() {
			assert.NotEqual(t, "gone.go", a.File)
		}
	})
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("success edits the file and rescans", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: delete me\npackage a\n// FIXME: stays\n")

		svc := newTestService(t, ws)
		first := scanAndWait(t, svc)
		require.Len(t, first, 2)

		ok, err := svc.Remove(ctx, first[0])
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Equal(t, 1, svc.TotalCount())
		remaining := svc.All()
		require.Len(t, remaining, 1)
		assert.Equal(t, "FIXME", remaining[0].Kind)
	})

	t.Run("failure leaves the store unchanged", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.add("a.go", "// TODO: read only\n")

		svc := newTestService(t, ws)
		first := scanAndWait(t, svc)
		require.Len(t, first, 1)

		ws.deleteErr = errors.New("permission denied")

		ok, err := svc.Remove(ctx, first[0])
		assert.False(t, ok)
		require.Error(t, err)

		assert.Equal(t, 1, svc.TotalCount())
		assert.Equal(t, first, svc.All())
	})
}

func TestService_StatusStream(t *testing.T) {
	ws := newFakeWorkspace()
	for i := 0; i < 5; i++ {
		ws.add(fmt.Sprintf("f%d.go", i), "// TODO: x\n")
	}

	svc := newTestService(t, ws)

	var mu sync.Mutex
	var snapshots []Status
	unsubscribe := svc.SubscribeStatus(func(st Status) {
		mu.Lock()
		snapshots = append(snapshots, st)
		mu.Unlock()
	})
	defer unsubscribe()

	scanAndWait(t, svc)

	mu.Lock()
	defer mu.Unlock()

	// At least one snapshot per file, plus the state transitions.
	require.GreaterOrEqual(t, len(snapshots), 6)

	prev := -1
	for _, st := range snapshots {
		assert.GreaterOrEqual(t, st.FilesProcessed, prev, "filesProcessed must be monotonic")
		assert.LessOrEqual(t, st.FilesProcessed, st.TotalFiles)
		prev = st.FilesProcessed
	}
	assert.Equal(t, StateSearching, snapshots[0].State)
	assert.Equal(t, StateComplete, snapshots[len(snapshots)-1].State)
}

func TestService_AuthorLookup(t *testing.T) {
	ws := newFakeWorkspace()
	ws.add("a.go", "// TODO: attributed\n// FIXME: unknown\n")

	cfg := &config.Config{
		Pattern:   "TODO|FIXME",
		Include:   []string{"**/*"},
		BatchSize: 20,
		Root:      "/repo",
	}
	resolver := resolverFunc(func(ctx context.Context, dir, path string, line int) (string, bool) {
		if line == 0 {
			return "alice", true
		}
		return "", false
	})

	svc := NewService(cfg, ws, resolver, zerolog.Nop())
	t.Cleanup(svc.Close)

	first := scanAndWait(t, svc)
	require.Len(t, first, 2)
	assert.Equal(t, "alice", first[0].Author)
	assert.Empty(t, first[1].Author)
}

type resolverFunc func(ctx context.Context, dir, path string, line int) (string, bool)

func (f resolverFunc) Author(ctx context.Context, dir, path string, line int) (string, bool) {
	return f(ctx, dir, path, line)
}
