package knowledge

import (
	"context"
	"time"

	"github.com/ai-gamemaster/knowledge-core/internal/embedding"
	"github.com/ai-gamemaster/knowledge-core/internal/logging"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// defaultGlobalCap is the default cap on items returned from one
// search (spec §4.4: "return top items (global cap, typically 5)").
const defaultGlobalCap = 5

// Manager is the Knowledge Base Manager (C4): it embeds a query once,
// fans it out across table sources and in-memory campaign
// collections, and merges the results.
type Manager struct {
	store  *store.ContentStore
	engine embedding.EmbeddingEngine
	memory *MemoryStore
}

// NewManager wires a Manager over an open content store and embedding
// engine. The same engine instance backs both catalog queries and
// lore/event ranking, so it must be safe for concurrent use (spec
// §4.4's concurrency contract) — embedding.EmbeddingEngine
// implementations here are either stateless HTTP clients or pure
// functions, so no additional locking is needed.
func NewManager(s *store.ContentStore, engine embedding.EmbeddingEngine) *Manager {
	return &Manager{store: s, engine: engine, memory: NewMemoryStore(engine)}
}

// Memory exposes the in-memory lore/event store so campaign setup code
// can populate it.
func (m *Manager) Memory() *MemoryStore { return m.memory }

// Search implements spec §4.4's procedure: embed once, fan out across
// every resolved source, merge, sort, dedup, and cap.
func (m *Manager) Search(ctx context.Context, query string, kbTypes []string, k int, scoreThreshold float64) (Results, error) {
	start := time.Now()
	log := logging.Get(logging.CategoryKnowledge)

	if k <= 0 {
		k = 5
	}
	sources := resolveKBTypes(kbTypes)

	queryVec, err := m.engine.Embed(ctx, query)
	if err != nil {
		log.Error("search: failed to embed query: %v", err)
		return Results{}, err
	}

	var items []Item
	queriesRun := 0
	for _, kbType := range sources {
		if campaignID, ok := isLoreKB(kbType); ok {
			queriesRun++
			found, err := m.memory.searchLore(ctx, campaignID, queryVec, k, scoreThreshold)
			if err != nil {
				log.Warn("search: lore search failed for %s: %v", kbType, err)
				continue
			}
			items = append(items, found...)
			continue
		}
		if campaignID, ok := isEventsKB(kbType); ok {
			queriesRun++
			found, err := m.memory.searchEvents(ctx, campaignID, queryVec, k, scoreThreshold)
			if err != nil {
				log.Warn("search: events search failed for %s: %v", kbType, err)
				continue
			}
			items = append(items, found...)
			continue
		}

		kinds, ok := tableSources[kbType]
		if !ok {
			continue
		}
		for _, kind := range kinds {
			queriesRun++
			found, err := m.searchTable(ctx, kind, kbType, queryVec, k, scoreThreshold)
			if err != nil {
				log.Warn("search: table search failed for kind=%s: %v", kind, err)
				continue
			}
			items = append(items, found...)
		}
	}

	sortItemsDesc(items)
	items = dedupe(items)
	if len(items) > defaultGlobalCap {
		items = items[:defaultGlobalCap]
	}

	return Results{Items: items, TotalQueries: queriesRun, ElapsedMs: time.Since(start).Milliseconds()}, nil
}

// searchTable runs one kind's ANN search via the content store and
// converts the result to Items.
func (m *Manager) searchTable(ctx context.Context, kind store.Kind, kbType string, queryVec []float32, k int, threshold float64) ([]Item, error) {
	rows, err := m.store.SearchNearest(ctx, kind, queryVec, k)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		if row.Similarity < threshold {
			continue
		}
		items = append(items, Item{
			Content:        formatVectorRow(kind, row),
			Source:         kbType,
			RelevanceScore: row.Similarity,
			Metadata: map[string]interface{}{
				"index": row.Index,
				"kind":  string(kind),
				"url":   row.URL,
			},
		})
	}
	return items, nil
}

// resolveKBTypes expands an optional kbTypes list into concrete
// source keys; nil/empty means "search everything" (spec §4.4).
func resolveKBTypes(kbTypes []string) []string {
	if len(kbTypes) > 0 {
		return kbTypes
	}
	return allTableKBTypes
}

// dedupe removes items sharing the same (source, content[:100]) key,
// keeping the first copy seen. Search sorts before calling it, so the
// copy kept there is the highest-scoring one.
func dedupe(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		key := it.Source + "\x00" + contentPrefix(it.Content)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}
