// Package intern deduplicates strings read from large inputs.
package intern

import (
	"strings"
	"sync"
)

// Pool maps each distinct string to one canonical copy. Safe for concurrent use.
type Pool struct {
	mu    sync.RWMutex
	store map[string]string
}

func New(sizeHint int) *Pool {
	return &Pool{store: make(map[string]string, sizeHint)}
}

// Intern returns the canonical copy of s. The first copy is cloned so the
// pool never pins the line buffer s was sliced from.
func (p *Pool) Intern(s string) string {
	if s == "" {
		return ""
	}

	p.mu.RLock()
	c, ok := p.store[s]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check
	if c, ok := p.store[s]; ok {
		return c
	}
	c = strings.Clone(s)
	p.store[c] = c
	return c
}

// Len returns the number of distinct strings.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.store)
}
