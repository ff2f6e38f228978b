package dnet

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Mode tells the dispatcher whether an entry survives invocation.
type Mode uint8

const (
	// Persistent entries stay registered and only see 2xx frames.
	Persistent Mode = iota
	// OneShot entries answer exactly one correlated reply and are then dropped.
	OneShot
)

func (m Mode) String() string {
	switch m {
	case Persistent:
		return "persistent"
	case OneShot:
		return "oneshot"
	default:
		return "unknown"
	}
}

type entry struct {
	action  string
	handler HandlerFunc
	mode    Mode
	asyncID string
	removed atomic.Bool
}

// claim tombstones the entry; only the first caller gets true.
func (e *entry) claim() bool {
	return e.removed.CompareAndSwap(false, true)
}

// Registry is the ordered handler store shared by a router and its namespaces.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	dead    int
	ids     *IDGenerator
	logger  *zap.Logger
}

// NewRegistry returns an empty registry that resets ids on RemoveAll.
func NewRegistry(ids *IDGenerator, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{ids: ids, logger: logger}
}

// Register appends an entry. asyncID is only meaningful for OneShot entries.
func (r *Registry) Register(action string, h HandlerFunc, mode Mode, asyncID string) error {
	_, err := r.add(action, h, mode, asyncID)
	return err
}

func (r *Registry) add(action string, h HandlerFunc, mode Mode, asyncID string) (*entry, error) {
	if action == "" {
		r.logger.Warn(ErrEmptyAction.Error())
		return nil, ErrEmptyAction
	}
	if h == nil {
		r.logger.Warn(ErrNilHandler.Error(), zap.String("action", action))
		return nil, ErrNilHandler
	}
	e := &entry{action: action, handler: h, mode: mode}
	if mode == OneShot {
		e.asyncID = asyncID
	}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	return e, nil
}

// snapshot returns the live entries in insertion order as of now.
func (r *Registry) snapshot() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entry, 0, len(r.entries)-r.dead)
	for _, e := range r.entries {
		if !e.removed.Load() {
			out = append(out, e)
		}
	}
	return out
}

// remove tombstones e; it reports false if e was already gone.
func (r *Registry) remove(e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !e.claim() {
		return false
	}
	r.dead++
	return true
}

// compact drops tombstoned entries.
func (r *Registry) compact() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead == 0 {
		return
	}
	live := r.entries[:0]
	for _, e := range r.entries {
		if !e.removed.Load() {
			live = append(live, e)
		}
	}
	clear(r.entries[len(live):])
	r.entries = live
	r.dead = 0
}

// Forget drops the OneShot entry waiting on asyncID and releases the id.
func (r *Registry) Forget(asyncID string) bool {
	r.mu.Lock()
	var target *entry
	for _, e := range r.entries {
		if e.mode == OneShot && e.asyncID == asyncID && !e.removed.Load() {
			target = e
			break
		}
	}
	r.mu.Unlock()
	if target == nil {
		return false
	}
	return r.drop(target)
}

// drop removes exactly e and releases its id. An entry already removed, for
// instance by RemoveAll, leaves a reissued id alone.
func (r *Registry) drop(e *entry) bool {
	if !r.remove(e) {
		return false
	}
	if e.mode == OneShot {
		r.ids.Release(e.asyncID)
	}
	r.compact()
	return true
}

// RemoveAll drops every entry and resets the outstanding correlation ids.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	for _, e := range r.entries {
		e.removed.Store(true)
	}
	clear(r.entries)
	r.entries = r.entries[:0]
	r.dead = 0
	r.mu.Unlock()
	r.ids.Reset()
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) - r.dead
}
