package knowledge

import (
	"context"
	"sync"

	"github.com/ai-gamemaster/knowledge-core/internal/embedding"
)

// LoreDocument is an ephemeral per-campaign lore entry (spec §3).
type LoreDocument struct {
	Key      string
	Content  string
	Metadata map[string]interface{}
	embedded []float32
}

// EventRecord is an ephemeral per-campaign, append-only event (spec §3).
type EventRecord struct {
	Timestamp int64
	Summary   string
	Keywords  []string
	embedded  []float32
}

// campaignStore holds one campaign's lore and event collections, with
// embeddings computed lazily and cached for the session's lifetime
// (spec §4.4.3: "embed each document once per session (cached)").
type campaignStore struct {
	mu     sync.Mutex
	lore   []LoreDocument
	events []EventRecord
}

// MemoryStore owns every campaign's ephemeral lore/event collections.
// Never persisted: campaign data lives only as long as the process
// keeps the campaign active (spec §3 "live in memory only").
type MemoryStore struct {
	mu        sync.RWMutex
	campaigns map[string]*campaignStore
	engine    embedding.EmbeddingEngine
}

// NewMemoryStore returns an empty store backed by engine for on-demand
// embedding of lore/event text.
func NewMemoryStore(engine embedding.EmbeddingEngine) *MemoryStore {
	return &MemoryStore{campaigns: make(map[string]*campaignStore), engine: engine}
}

func (m *MemoryStore) campaign(campaignID string) *campaignStore {
	m.mu.RLock()
	c, ok := m.campaigns[campaignID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[campaignID]; ok {
		return c
	}
	c = &campaignStore{}
	m.campaigns[campaignID] = c
	return c
}

// SetLore installs campaignID's lore documents (called once at
// campaign activation, per spec §3).
func (m *MemoryStore) SetLore(campaignID string, docs []LoreDocument) {
	c := m.campaign(campaignID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lore = docs
}

// AppendEvent adds one event record to campaignID's append-only log.
func (m *MemoryStore) AppendEvent(campaignID string, ev EventRecord) {
	c := m.campaign(campaignID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// searchLore ranks campaignID's lore documents against queryVec,
// embedding any document missing its cached vector, then applies the
// score threshold and k truncation.
func (m *MemoryStore) searchLore(ctx context.Context, campaignID string, queryVec []float32, k int, threshold float64) ([]Item, error) {
	c := m.campaign(campaignID)
	c.mu.Lock()
	defer c.mu.Unlock()

	var scored []Item
	for i := range c.lore {
		doc := &c.lore[i]
		if doc.embedded == nil {
			v, err := m.engine.Embed(ctx, doc.Content)
			if err != nil {
				return nil, err
			}
			doc.embedded = v
		}
		sim, err := embedding.CosineSimilarity(queryVec, doc.embedded)
		if err != nil {
			continue
		}
		if sim < threshold {
			continue
		}
		scored = append(scored, Item{
			Content:        doc.Content,
			Source:         "lore_" + campaignID,
			RelevanceScore: sim,
			Metadata:       mergeMetadata(doc.Metadata, map[string]interface{}{"key": doc.Key}),
		})
	}
	sortItemsDesc(scored)
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// searchEvents ranks campaignID's events against queryVec the same way.
func (m *MemoryStore) searchEvents(ctx context.Context, campaignID string, queryVec []float32, k int, threshold float64) ([]Item, error) {
	c := m.campaign(campaignID)
	c.mu.Lock()
	defer c.mu.Unlock()

	var scored []Item
	for i := range c.events {
		ev := &c.events[i]
		if ev.embedded == nil {
			v, err := m.engine.Embed(ctx, ev.Summary)
			if err != nil {
				return nil, err
			}
			ev.embedded = v
		}
		sim, err := embedding.CosineSimilarity(queryVec, ev.embedded)
		if err != nil {
			continue
		}
		if sim < threshold {
			continue
		}
		scored = append(scored, Item{
			Content:        ev.Summary,
			Source:         "events_" + campaignID,
			RelevanceScore: sim,
			Metadata:       map[string]interface{}{"timestamp": ev.Timestamp, "keywords": ev.Keywords},
		})
	}
	sortItemsDesc(scored)
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func mergeMetadata(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func sortItemsDesc(items []Item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].RelevanceScore > items[j-1].RelevanceScore; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
