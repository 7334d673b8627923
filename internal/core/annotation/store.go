package annotation

import "sync"

// Store is the authoritative in-memory collection of discovered
// annotations. It maintains two views: a flat sequence in discovery
// order and a per-file grouping. Both views are always mutated together
// under one lock, so a reader never observes one updated without the
// other.
type Store struct {
	mu     sync.RWMutex
	flat   []Annotation
	byFile map[string][]Annotation
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byFile: make(map[string][]Annotation),
	}
}

// Append adds an annotation to both the flat sequence and the per-file
// grouping.
func (s *Store) Append(a Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flat = append(s.flat, a)
	s.byFile[a.File] = append(s.byFile[a.File], a)
}

// InvalidateFile drops every annotation for the given file from both
// views. Idempotent.
func (s *Store) InvalidateFile(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byFile[file]; !ok {
		return
	}

	delete(s.byFile, file)

	kept := s.flat[:0]
	for _, a := range s.flat {
		if a.File != file {
			kept = append(kept, a)
		}
	}
	s.flat = kept
}

// RemoveWhere drops every annotation matching the predicate from both
// views and returns the number removed.
func (s *Store) RemoveWhere(pred func(Annotation) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.flat[:0]
	for _, a := range s.flat {
		if pred(a) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.flat = kept

	if removed == 0 {
		return 0
	}

	for file, anns := range s.byFile {
		keptFile := anns[:0]
		for _, a := range anns {
			if !pred(a) {
				keptFile = append(keptFile, a)
			}
		}
		if len(keptFile) == 0 {
			delete(s.byFile, file)
			continue
		}
		s.byFile[file] = keptFile
	}

	return removed
}

// InFile returns the annotations for a single file in discovery order.
func (s *Store) InFile(file string) []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anns := s.byFile[file]
	out := make([]Annotation, len(anns))
	copy(out, anns)
	return out
}

// CountInFile returns the number of annotations stored for a file.
func (s *Store) CountInFile(file string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byFile[file])
}

// Total returns the number of annotations across all files.
func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flat)
}

// All returns a copy of the flat sequence in discovery order.
func (s *Store) All() []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Annotation, len(s.flat))
	copy(out, s.flat)
	return out
}

// Slice returns the window [offset, offset+n) of the flat sequence.
// Out-of-range requests return an empty slice, which callers treat as
// "no more material".
func (s *Store) Slice(offset, n int) []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 || offset >= len(s.flat) || n <= 0 {
		return nil
	}

	end := offset + n
	if end > len(s.flat) {
		end = len(s.flat)
	}

	out := make([]Annotation, end-offset)
	copy(out, s.flat[offset:end])
	return out
}

// Files returns the set of files that currently hold annotations.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]string, 0, len(s.byFile))
	for f := range s.byFile {
		files = append(files, f)
	}
	return files
}

// Clear drops both views.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flat = nil
	s.byFile = make(map[string][]Annotation)
}
