package dnet

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator issues correlation ids that are unique among the ids currently outstanding.
type IDGenerator struct {
	mu     sync.Mutex
	issued map[string]struct{}
	source func() string
}

// NewIDGenerator returns a generator drawing candidates from source.
// A nil source uses random UUIDs.
func NewIDGenerator(source func() string) *IDGenerator {
	if source == nil {
		source = uuid.NewString
	}
	return &IDGenerator{
		issued: make(map[string]struct{}),
		source: source,
	}
}

// Generate returns an id that is not outstanding and marks it as issued.
func (g *IDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		id := g.source()
		if _, taken := g.issued[id]; taken {
			continue
		}
		g.issued[id] = struct{}{}
		return id
	}
}

// Release makes id available for reuse.
func (g *IDGenerator) Release(id string) {
	g.mu.Lock()
	delete(g.issued, id)
	g.mu.Unlock()
}

// Reset forgets every outstanding id.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	clear(g.issued)
	g.mu.Unlock()
}

// Outstanding reports how many ids are currently issued.
func (g *IDGenerator) Outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.issued)
}

// SequentialIDs returns a source producing "<host>-<n>" ids with n in base 36.
// Each call owns its own counter.
func SequentialIDs() func() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "h"
	}
	prefix := host + "-"
	var seq atomic.Uint64
	return func() string {
		return prefix + strconv.FormatUint(seq.Add(1), 36)
	}
}
