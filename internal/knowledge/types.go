// Package knowledge implements the Knowledge Base Manager (spec
// component C4): hybrid vector search across the catalog tables (via
// C1/C2) plus per-campaign in-memory lore and event collections.
//
// There is no direct teacher equivalent (codenerd has no game-rule
// catalog); grounded on spec §4.4 and, for the in-memory document
// ranking half, on _load_lore_knowledge_base/_search_lore in
// original_source/app/services/rag/db_knowledge_base_manager.py.
package knowledge

// Item is one ranked result from a search.
type Item struct {
	Content        string
	Source         string
	RelevanceScore float64
	Metadata       map[string]interface{}
}

// Results is the return value of Search.
type Results struct {
	Items        []Item
	TotalQueries int
	ElapsedMs    int64
}

// contentPrefix returns the content half of the dedup key, the first
// 100 bytes of content; dedupe pairs it with the item's source.
func contentPrefix(content string) string {
	if len(content) <= 100 {
		return content
	}
	return content[:100]
}
