package testfixtures

import (
	"strconv"
	"sync"
)

// IDGenerator yields prefix-1, prefix-2, ... so assertions can name the
// records a service creates.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

// NewIDGenerator returns a generator for prefix, "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return g.prefix + "-" + strconv.Itoa(g.counter)
}

// NextFunc exposes Next for services that take a func() string.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Peek returns the identifier Next would produce without consuming it.
func (g *IDGenerator) Peek() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prefix + "-" + strconv.Itoa(g.counter+1)
}

// Reset restarts the sequence under a new prefix. An empty prefix keeps the
// current one.
func (g *IDGenerator) Reset(prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prefix != "" {
		g.prefix = prefix
	}
	g.counter = 0
}
