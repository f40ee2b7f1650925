package testutil

import (
	"fmt"
	"sync"
)

// CountingGenerator returns "<prefix>-1", "<prefix>-2", ... and never runs
// out. The same scenario run twice gets the same trace ids.
//
// Thread-safety: safe for concurrent use.
type CountingGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCountingGenerator creates a generator. An empty prefix means "trace".
func NewCountingGenerator(prefix string) *CountingGenerator {
	if prefix == "" {
		prefix = "trace"
	}
	return &CountingGenerator{prefix: prefix}
}

// Generate returns the next trace id.
func (g *CountingGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *CountingGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
