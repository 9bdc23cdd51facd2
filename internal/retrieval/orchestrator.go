// Package retrieval implements the Retrieval Orchestrator (C6): it
// executes a planner.Query list through the Knowledge Base Manager
// with per-source caps, a relevance floor, action-keyword boosting,
// and near-duplicate suppression before handing a bounded result set
// to the prompt assembler.
//
// Grounded on RAGServiceImpl.execute_queries_with_filtering in
// original_source/app/services/rag/rag_service.py (per _INDEX.md).
package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/knowledge"
	"github.com/ai-gamemaster/knowledge-core/internal/logging"
	"github.com/ai-gamemaster/knowledge-core/internal/planner"
)

const (
	defaultPerSourceCap = 2
	// defaultRelevanceFloor matches the [0,1]-scaled cosine/ANN
	// similarity every Searcher implementation actually produces
	// (knowledge.Manager's searchTable/searchLore/searchEvents), not
	// the original RAGServiceImpl's separate, effectively inert
	// relevance_threshold on a different scale.
	defaultRelevanceFloor  = 0.3
	defaultGlobalCap       = 5
	defaultActionBoostCap  = 2.0
	defaultActionBoostUnit = 0.5
	dedupTokenCount        = 15
	dedupJaccardThreshold  = 0.7
)

// Searcher is the subset of knowledge.Manager the orchestrator
// depends on, so tests can substitute a fake without standing up a
// real content store.
type Searcher interface {
	Search(ctx context.Context, query string, kbTypes []string, k int, scoreThreshold float64) (knowledge.Results, error)
}

// RateLimitError reports that an upstream dependency (embedding
// provider or content store) rejected a request due to rate limiting.
type RateLimitError struct {
	Source string
}

func (e *RateLimitError) Error() string {
	return "retrieval: rate limited by " + e.Source
}

// TimeoutError reports that a per-query deadline elapsed before a
// source responded.
type TimeoutError struct {
	Source string
}

func (e *TimeoutError) Error() string {
	return "retrieval: timed out waiting for " + e.Source
}

// Options tunes the orchestrator's filtering thresholds; the zero
// value is not valid, use DefaultOptions.
type Options struct {
	PerSourceCap   int
	RelevanceFloor float64
	GlobalCap      int
}

// DefaultOptions matches spec §4.6's defaults: a per-source cap of 2,
// a [0,1]-scaled relevance floor of 0.3, and a global cap of 5.
func DefaultOptions() Options {
	return Options{
		PerSourceCap:   defaultPerSourceCap,
		RelevanceFloor: defaultRelevanceFloor,
		GlobalCap:      defaultGlobalCap,
	}
}

// OptionsFromConfig builds Options from a loaded RetrievalConfig,
// so config.yaml's knowledge_score_floor actually governs both the
// per-source floor and the score threshold passed to each Search call.
func OptionsFromConfig(c config.RetrievalConfig) Options {
	opts := Options{
		PerSourceCap:   c.PerSourceCap,
		RelevanceFloor: c.KnowledgeScoreFloor,
		GlobalCap:      c.MaxTotalResults,
	}
	if opts.RelevanceFloor == 0 {
		opts.RelevanceFloor = defaultRelevanceFloor
	}
	return opts
}

// Orchestrator is the Retrieval Orchestrator (C6).
type Orchestrator struct {
	search Searcher
	opts   Options
}

// New wires an Orchestrator over a knowledge.Manager (or a test
// double satisfying Searcher).
func New(search Searcher, opts Options) *Orchestrator {
	if opts.PerSourceCap <= 0 {
		opts.PerSourceCap = defaultPerSourceCap
	}
	if opts.GlobalCap <= 0 {
		opts.GlobalCap = defaultGlobalCap
	}
	return &Orchestrator{search: search, opts: opts}
}

// Execute runs every planned query in priority order, applying the
// per-source cap, relevance floor, action-keyword boost, near-duplicate
// suppression, and global cap described in spec §4.6. It never returns
// an error for a single source's failure — those are logged and
// skipped so one bad source cannot blank out a whole retrieval pass.
func (o *Orchestrator) Execute(ctx context.Context, queries []planner.Query, originalAction string) (knowledge.Results, error) {
	start := time.Now()
	log := logging.Get(logging.CategoryRetrieval)

	var all []knowledge.Item
	queriesRun := 0

	for _, q := range queries {
		queriesRun++
		results, err := o.search.Search(ctx, q.Text, q.KBTypeFilter, o.opts.PerSourceCap*3, o.opts.RelevanceFloor)
		if err != nil {
			log.Warn("retrieval: query %q (%s) failed: %v", q.Text, q.Kind, err)
			continue
		}

		bySource := groupBySource(results.Items)
		for _, items := range bySource {
			sortItemsDesc(items)
			floored := filterByFloor(items, o.opts.RelevanceFloor)
			if len(floored) > o.opts.PerSourceCap {
				floored = floored[:o.opts.PerSourceCap]
			}
			all = append(all, floored...)
		}
	}

	sortItemsDesc(all)
	deduped := dedupeJaccard(all)

	if originalAction != "" {
		boostActionRelevance(deduped, originalAction)
		sortItemsDesc(deduped)
	}

	if len(deduped) > o.opts.GlobalCap {
		deduped = deduped[:o.opts.GlobalCap]
	}

	return knowledge.Results{Items: deduped, TotalQueries: queriesRun, ElapsedMs: time.Since(start).Milliseconds()}, nil
}

func groupBySource(items []knowledge.Item) map[string][]knowledge.Item {
	out := make(map[string][]knowledge.Item)
	for _, it := range items {
		out[it.Source] = append(out[it.Source], it)
	}
	return out
}

func filterByFloor(items []knowledge.Item, floor float64) []knowledge.Item {
	out := make([]knowledge.Item, 0, len(items))
	for _, it := range items {
		if it.RelevanceScore >= floor {
			out = append(out, it)
		}
	}
	return out
}

func sortItemsDesc(items []knowledge.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RelevanceScore > items[j].RelevanceScore
	})
}

// boostActionRelevance adds min(0.5*matches, 2.0) to every item whose
// content shares lowercase words with the player's raw action text.
func boostActionRelevance(items []knowledge.Item, action string) {
	actionWords := wordSet(action)
	if len(actionWords) == 0 {
		return
	}
	for i := range items {
		contentWords := wordSet(items[i].Content)
		matches := intersectionSize(actionWords, contentWords)
		if matches == 0 {
			continue
		}
		boost := float64(matches) * defaultActionBoostUnit
		if boost > defaultActionBoostCap {
			boost = defaultActionBoostCap
		}
		items[i].RelevanceScore += boost
	}
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

func intersectionSize(a, b map[string]bool) int {
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}

// dedupeJaccard drops items whose normalized content is a near-duplicate
// (Jaccard similarity over 0.7) of one already kept, preferring the
// earlier (higher-scoring, since callers sort beforehand) occurrence.
func dedupeJaccard(items []knowledge.Item) []knowledge.Item {
	var kept []knowledge.Item
	var keptTokens []map[string]bool

	for _, it := range items {
		tokens := normalizeTokens(it.Content)
		duplicate := false
		for _, seen := range keptTokens {
			if jaccardSimilarity(tokens, seen) > dedupJaccardThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, it)
		keptTokens = append(keptTokens, tokens)
	}
	return kept
}

// normalizeTokens lowercases content, strips punctuation, and keeps
// the first 15 tokens, mirroring
// RAGServiceImpl._normalize_content_for_comparison.
func normalizeTokens(content string) map[string]bool {
	lower := strings.ToLower(content)
	var b strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	if len(words) > dedupTokenCount {
		words = words[:dedupTokenCount]
	}
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := intersectionSize(a, b)
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
