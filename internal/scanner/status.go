package scanner

import "sync"

// State is the lifecycle state of a scan.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

// Status is a point-in-time snapshot of scan progress. A snapshot is
// published at least once per file processed and on every state
// transition.
type Status struct {
	State          State  `json:"state"`
	FilesProcessed int    `json:"files_processed"`
	TotalFiles     int    `json:"total_files"`
	CurrentFile    string `json:"current_file,omitempty"`
}

// statusBus dispatches status snapshots to subscribers inline. Modeled
// after the notification bus pattern: Subscribe returns an unsubscribe
// handle the caller invokes on teardown.
type statusBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Status)
}

func newStatusBus() *statusBus {
	return &statusBus{subs: make(map[int]func(Status))}
}

// subscribe registers a callback and returns its unsubscribe handle.
func (b *statusBus) subscribe(fn func(Status)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// publish dispatches a snapshot to all current subscribers.
func (b *statusBus) publish(st Status) {
	b.mu.Lock()
	fns := make([]func(Status), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
