package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out "<prefix>-1", "<prefix>-2", ... so meeting and slot
// ids stay stable across test runs.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator returns a generator for the given prefix; an empty prefix
// becomes "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc adapts the generator to the func() string dependency the service
// expects.
func (g *IDGenerator) NextFunc() func() string {
	return g.Next
}

// SetCounter rewinds or fast-forwards the sequence; the following Next call
// yields counter+1.
func (g *IDGenerator) SetCounter(counter uint64) {
	g.mu.Lock()
	g.counter = counter
	g.mu.Unlock()
}
