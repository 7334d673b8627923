// Package scanner drives incremental annotation discovery: it
// enumerates workspace files, extracts annotations in bounded batches
// with the first batch returned synchronously, continues in the
// background, and repairs the index on filesystem change events.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/marker/internal/core/annotation"
	"github.com/colonyops/marker/internal/core/config"
	"github.com/colonyops/marker/internal/core/extract"
	"github.com/colonyops/marker/internal/core/workspace"
)

// AuthorResolver looks up line attribution for discovered annotations.
// Lookups are best-effort; ok=false stores the annotation without an
// author.
type AuthorResolver interface {
	Author(ctx context.Context, dir, path string, line int) (author string, ok bool)
}

// Service owns the annotation index for one workspace session. It is
// the only writer to the store and file cache; the presentation layer
// consumes it through the query methods.
type Service struct {
	cfg      *config.Config
	ws       workspace.Workspace
	resolver AuthorResolver // nil when author lookup is disabled
	log      zerolog.Logger

	store *annotation.Store
	cache *FileCache
	bus   *statusBus

	// generation distinguishes the current scan from superseded
	// background continuations; stale batches discard their results.
	generation atomic.Int64

	mu        sync.Mutex
	extractor *extract.Extractor
	processed map[string]struct{}
	status    Status

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the index service. The resolver may be nil to
// disable author attribution.
func NewService(cfg *config.Config, ws workspace.Workspace, resolver AuthorResolver, log zerolog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		cfg:       cfg,
		ws:        ws,
		resolver:  resolver,
		log:       log.With().Str("component", "scanner").Logger(),
		store:     annotation.NewStore(),
		cache:     NewFileCache(),
		bus:       newStatusBus(),
		processed: make(map[string]struct{}),
		status:    Status{State: StateIdle},
		ctx:       ctx,
		cancel:    cancel,
	}
}

// InitializeScan starts a new scan. The first batch of files is
// processed synchronously and its annotations returned; remaining files
// continue in a background goroutine, batch by batch. A scan started
// while another is running supersedes it.
//
// Files whose fingerprint is unchanged since the last scan are not
// re-extracted; their previous annotations are carried over in
// enumeration order.
func (s *Service) InitializeScan(ctx context.Context) ([]annotation.Annotation, error) {
	gen := s.generation.Add(1)

	ex, err := extract.New(s.cfg.Pattern)
	if err != nil {
		s.fail(gen)
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	files, err := s.ws.ListFiles(s.cfg.Include, s.cfg.Exclude)
	if err != nil {
		s.fail(gen)
		return nil, fmt.Errorf("enumerate workspace: %w", err)
	}
	files = dedupe(files)

	// Snapshot the previous index so unchanged files replay their
	// annotations without re-reading.
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return nil, nil
	}
	prev := make(map[string][]annotation.Annotation)
	for _, a := range s.store.All() {
		prev[a.File] = append(prev[a.File], a)
	}
	s.store.Clear()
	s.extractor = ex
	s.processed = make(map[string]struct{})
	s.status = Status{State: StateSearching, TotalFiles: len(files)}
	snapshot := s.status
	s.mu.Unlock()
	s.bus.publish(snapshot)

	batch := s.cfg.BatchSize
	first := files
	if len(first) > batch {
		first = files[:batch]
	}

	for _, f := range first {
		s.processFile(ctx, gen, f, prev)
	}
	result := s.store.All()

	rest := files[len(first):]
	if len(rest) == 0 {
		s.complete(gen)
		return result, nil
	}

	s.wg.Add(1)
	go s.backgroundScan(gen, rest, prev)

	return result, nil
}

// backgroundScan continues the scan after the first batch has been
// handed to the caller. Each batch re-checks the generation so a newer
// scan abandons this one cleanly.
func (s *Service) backgroundScan(gen int64, files []string, prev map[string][]annotation.Annotation) {
	defer s.wg.Done()

	batch := s.cfg.BatchSize
	for start := 0; start < len(files); start += batch {
		if s.generation.Load() != gen {
			s.log.Debug().Int64("generation", gen).Msg("background scan superseded")
			return
		}
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		end := start + batch
		if end > len(files) {
			end = len(files)
		}
		for _, f := range files[start:end] {
			s.processFile(s.ctx, gen, f, prev)
		}
	}

	s.complete(gen)
}

// processFile extracts one file into the store. Per-file failures are
// logged and skipped; they never abort the batch. All store/cache
// mutations for the file happen in a single critical section so readers
// never observe the flat sequence and grouping out of sync.
func (s *Service) processFile(ctx context.Context, gen int64, path string, prev map[string][]annotation.Annotation) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}
	if _, done := s.processed[path]; done {
		// Listed twice; already extracted this scan.
		s.mu.Unlock()
		return
	}
	extractor := s.extractor
	s.mu.Unlock()

	mtime, err := s.ws.Stat(path)
	if err != nil {
		s.log.Debug().Err(err).Str("file", path).Msg("stat failed, skipping")
		s.markProcessed(gen, path, nil, false, time.Time{})
		return
	}

	if s.cache.ShouldSkip(path, mtime) {
		s.markProcessed(gen, path, prev[path], false, mtime)
		return
	}

	text, err := s.ws.ReadText(path)
	if err != nil {
		s.log.Debug().Err(err).Str("file", path).Msg("read failed, skipping")
		s.markProcessed(gen, path, nil, false, time.Time{})
		return
	}

	matches := extractor.Extract(text)
	var anns []annotation.Annotation
	if len(matches) > 0 {
		li := extract.NewLineIndex(text)
		anns = make([]annotation.Annotation, 0, len(matches))
		for _, m := range matches {
			line, col := li.Position(m.Start)
			a := annotation.Annotation{
				Kind:    m.Kind,
				Message: m.Message,
				File:    path,
				Line:    line,
				Column:  col,
				Start:   m.Start,
				End:     m.End,
			}
			if s.resolver != nil && s.cfg.AuthorLookupEnabled() {
				if author, ok := s.resolver.Author(ctx, s.cfg.Root, path, line); ok {
					a.Author = author
				}
			}
			anns = append(anns, a)
		}
	}

	s.markProcessed(gen, path, anns, true, mtime)
}

// markProcessed merges a file's results and advances progress counters
// in one critical section, then publishes the status snapshot.
func (s *Service) markProcessed(gen int64, path string, anns []annotation.Annotation, record bool, mtime time.Time) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}

	for _, a := range anns {
		s.store.Append(a)
	}
	if record {
		s.cache.Record(path, mtime)
	}
	s.processed[path] = struct{}{}
	s.status.FilesProcessed++
	s.status.CurrentFile = path
	snapshot := s.status
	s.mu.Unlock()

	s.bus.publish(snapshot)
}

// complete transitions to the terminal state if the scan is still
// current.
func (s *Service) complete(gen int64) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}
	s.status.State = StateComplete
	snapshot := s.status
	s.mu.Unlock()

	s.bus.publish(snapshot)
}

func (s *Service) fail(gen int64) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}
	s.status.State = StateFailed
	snapshot := s.status
	s.mu.Unlock()

	s.bus.publish(snapshot)
}

// Refresh clears the file cache and the store, then starts a fresh
// scan. Every file is re-extracted.
func (s *Service) Refresh(ctx context.Context) ([]annotation.Annotation, error) {
	s.cache.Clear()
	s.store.Clear()
	return s.InitializeScan(ctx)
}

// NextBatch returns the slice [offset, offset+n) of the accumulated
// annotation sequence. An empty result means the store has no more
// material than the caller has already consumed.
func (s *Service) NextBatch(offset, n int) []annotation.Annotation {
	return s.store.Slice(offset, n)
}

// TotalCount returns the number of annotations discovered so far.
func (s *Service) TotalCount() int {
	return s.store.Total()
}

// InProgress reports whether a scan is still running.
func (s *Service) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.State == StateSearching
}

// Status returns the current scan status snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// AnnotationsInFile returns the annotations for one file in discovery
// order.
func (s *Service) AnnotationsInFile(path string) []annotation.Annotation {
	return s.store.InFile(path)
}

// CountInFile returns the number of annotations stored for a file.
func (s *Service) CountInFile(path string) int {
	return s.store.CountInFile(path)
}

// All returns every annotation discovered so far in discovery order.
func (s *Service) All() []annotation.Annotation {
	return s.store.All()
}

// SubscribeStatus registers a status callback and returns its
// unsubscribe handle. Snapshots arrive at least once per file processed
// and on every state transition.
func (s *Service) SubscribeStatus(fn func(Status)) func() {
	return s.bus.subscribe(fn)
}

// Remove deletes the annotation's comment from its source file. On
// success a full rescan is started so the index stays consistent with
// the edited file; on failure the store is left unchanged and false is
// returned with the cause.
func (s *Service) Remove(ctx context.Context, a annotation.Annotation) (bool, error) {
	if err := s.ws.DeleteRange(a.File, a.Start, a.End); err != nil {
		s.log.Warn().Err(err).Str("file", a.File).Msg("annotation deletion failed")
		return false, fmt.Errorf("delete annotation in %s: %w", a.File, err)
	}

	if _, err := s.InitializeScan(ctx); err != nil {
		// The edit itself succeeded; surface the rescan failure but
		// report the removal as done.
		s.log.Warn().Err(err).Msg("rescan after removal failed")
	}
	return true, nil
}

// HandleFileChanged reacts to a file create/modify signal: the file's
// cache entry and processed mark are dropped, and if the file holds
// annotations in the store a full rescan keeps the global ordering
// consistent.
func (s *Service) HandleFileChanged(ctx context.Context, path string) {
	s.cache.Invalidate(path)

	s.mu.Lock()
	delete(s.processed, path)
	s.mu.Unlock()

	if s.store.CountInFile(path) == 0 {
		return
	}

	if _, err := s.InitializeScan(ctx); err != nil {
		s.log.Warn().Err(err).Str("file", path).Msg("rescan after change failed")
	}
}

// HandleFileDeleted reacts to a file delete signal by dropping the
// file's cache entry, processed mark, and stored annotations.
func (s *Service) HandleFileDeleted(path string) {
	s.cache.Invalidate(path)

	s.mu.Lock()
	delete(s.processed, path)
	s.mu.Unlock()

	s.store.InvalidateFile(path)
}

// Close disposes the service: the background scan is cancelled and
// awaited, and all index state is dropped.
func (s *Service) Close() {
	s.generation.Add(1) // supersede any in-flight scan
	s.cancel()
	s.wg.Wait()

	s.store.Clear()
	s.cache.Clear()
}

func dedupe(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := files[:0]
	for _, f := range files {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
