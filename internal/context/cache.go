// Package context implements the Context Cache (C8): a single-slot
// cache of the last formatted RAG context string, attached to one
// game state / campaign session.
//
// Grounded on GameStateModel._last_rag_context and
// RAGContextBuilder.get_rag_context_for_prompt /
// clear_stored_rag_context in
// original_source/app/services/rag/rag_context_builder.py (per
// _INDEX.md).
package context

import "sync"

// Cache holds the last assembled RAG context string for one session.
// Never persisted: a new process starts with an empty cache.
type Cache struct {
	mu   sync.Mutex
	last *string
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Get returns the cached context and whether one is present.
func (c *Cache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return "", false
	}
	return *c.last, true
}

// Set stores ctx as the cached context, replacing whatever was there.
func (c *Cache) Set(ctx string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = &ctx
}

// Clear empties the cache — called whenever a new player action starts,
// or when a material event (e.g. combat ending) invalidates whatever
// was previously retrieved (spec §4.8).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nil
}
