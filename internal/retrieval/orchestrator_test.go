package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/knowledge"
	"github.com/ai-gamemaster/knowledge-core/internal/planner"
)

// fakeSearcher returns a fixed set of items regardless of query text,
// letting tests control exactly what the orchestrator has to filter.
type fakeSearcher struct {
	items []knowledge.Item
	err   error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, kbTypes []string, k int, scoreThreshold float64) (knowledge.Results, error) {
	if f.err != nil {
		return knowledge.Results{}, f.err
	}
	return knowledge.Results{Items: f.items}, nil
}

func basicQueries() []planner.Query {
	return []planner.Query{{Text: "attack the goblin", Kind: planner.KindCombat}}
}

func TestExecuteAppliesRelevanceFloor(t *testing.T) {
	fake := &fakeSearcher{items: []knowledge.Item{
		{Content: "below floor", Source: "monsters", RelevanceScore: 0.12},
		{Content: "above floor", Source: "monsters", RelevanceScore: 0.61},
	}}
	o := New(fake, DefaultOptions())
	results, err := o.Execute(context.Background(), basicQueries(), "")
	require.NoError(t, err)
	require.Len(t, results.Items, 1)
	require.Equal(t, "above floor", results.Items[0].Content)
}

// TestExecuteEndToEndWithRealisticScores exercises Execute against
// scores shaped like what searchTable/searchLore actually produce
// (cosine similarity / 1/(1+distance), bounded to [0,1]) to catch
// any regression where the floor is scaled against the wrong range.
func TestExecuteEndToEndWithRealisticScores(t *testing.T) {
	fake := &fakeSearcher{items: []knowledge.Item{
		{Content: "The goblin is a small, cunning humanoid that favors ambush.", Source: "monsters", RelevanceScore: 0.82},
		{Content: "Fireball deals fire damage in a 20-foot radius.", Source: "spells", RelevanceScore: 0.74},
		{Content: "Leather armor grants a base AC of 11 plus Dex modifier.", Source: "equipment", RelevanceScore: 0.41},
		{Content: "An unrelated tavern rumor about a missing cat.", Source: "lore_camp1", RelevanceScore: 0.09},
	}}
	o := New(fake, DefaultOptions())
	results, err := o.Execute(context.Background(), []planner.Query{
		{Text: "goblin", Kind: planner.KindCombat, KBTypeFilter: []string{"monsters"}},
		{Text: "fireball", Kind: planner.KindSpellCast, KBTypeFilter: []string{"spells"}},
		{Text: "armor", Kind: planner.KindGeneral, KBTypeFilter: []string{"equipment"}},
		{Text: "rumor", Kind: planner.KindGeneral, KBTypeFilter: []string{"lore_camp1"}},
	}, "")
	require.NoError(t, err)
	require.NotEmpty(t, results.Items, "realistic [0,1]-scaled scores must survive the default floor")
	require.Len(t, results.Items, 3, "only the item below the 0.3 floor should be dropped")
	for _, item := range results.Items {
		require.NotEqual(t, "An unrelated tavern rumor about a missing cat.", item.Content)
	}
}

func TestExecuteAppliesPerSourceCap(t *testing.T) {
	fake := &fakeSearcher{items: []knowledge.Item{
		{Content: "first", Source: "monsters", RelevanceScore: 5.0},
		{Content: "second", Source: "monsters", RelevanceScore: 4.0},
		{Content: "third", Source: "monsters", RelevanceScore: 3.0},
	}}
	o := New(fake, DefaultOptions())
	results, err := o.Execute(context.Background(), basicQueries(), "")
	require.NoError(t, err)
	require.Len(t, results.Items, 2)
	require.Equal(t, "first", results.Items[0].Content)
	require.Equal(t, "second", results.Items[1].Content)
}

func TestExecuteAppliesGlobalCap(t *testing.T) {
	queries := []planner.Query{
		{Text: "a", Kind: planner.KindCombat, KBTypeFilter: []string{"monsters"}},
		{Text: "b", Kind: planner.KindGeneral},
	}
	fake := &fakeSearcher{items: []knowledge.Item{
		{Content: "one", Source: "monsters", RelevanceScore: 9.0},
		{Content: "two", Source: "spells", RelevanceScore: 8.0},
		{Content: "three", Source: "equipment", RelevanceScore: 7.0},
	}}
	o := New(fake, Options{PerSourceCap: 2, RelevanceFloor: 0, GlobalCap: 2})
	results, err := o.Execute(context.Background(), queries, "")
	require.NoError(t, err)
	require.Len(t, results.Items, 2)
}

func TestExecuteBoostsActionKeywordMatches(t *testing.T) {
	fake := &fakeSearcher{items: []knowledge.Item{
		{Content: "Monster goblin a small cunning humanoid", Source: "monsters", RelevanceScore: 2.0},
		{Content: "Monster dragon a vast ancient wyrm", Source: "monsters", RelevanceScore: 2.1},
	}}
	o := New(fake, Options{PerSourceCap: 5, RelevanceFloor: 0, GlobalCap: 5})
	results, err := o.Execute(context.Background(), basicQueries(), "attack the goblin")
	require.NoError(t, err)
	require.NotEmpty(t, results.Items)
	require.Equal(t, "Monster goblin a small cunning humanoid", results.Items[0].Content)
}

func TestExecuteDedupesNearDuplicates(t *testing.T) {
	fake := &fakeSearcher{items: []knowledge.Item{
		{Content: "The goblin has 7 hit points and a scimitar", Source: "monsters", RelevanceScore: 5.0},
		{Content: "The goblin has 7 hit points and a scimitar!", Source: "monsters", RelevanceScore: 4.9},
	}}
	o := New(fake, Options{PerSourceCap: 5, RelevanceFloor: 0, GlobalCap: 5})
	results, err := o.Execute(context.Background(), basicQueries(), "")
	require.NoError(t, err)
	require.Len(t, results.Items, 1)
}

func TestExecuteContinuesOnSourceError(t *testing.T) {
	fake := &fakeSearcher{err: &TimeoutError{Source: "monsters"}}
	o := New(fake, DefaultOptions())
	results, err := o.Execute(context.Background(), basicQueries(), "")
	require.NoError(t, err)
	require.Empty(t, results.Items)
}

func TestOptionsFromConfigWiresKnowledgeScoreFloor(t *testing.T) {
	cfg := config.DefaultConfig().Retrieval
	opts := OptionsFromConfig(cfg)
	require.Equal(t, cfg.KnowledgeScoreFloor, opts.RelevanceFloor)
	require.Equal(t, cfg.PerSourceCap, opts.PerSourceCap)
	require.Equal(t, cfg.MaxTotalResults, opts.GlobalCap)
}

func TestJaccardSimilarityIdenticalIsOne(t *testing.T) {
	a := normalizeTokens("The quick brown fox")
	b := normalizeTokens("the quick brown fox")
	require.Equal(t, 1.0, jaccardSimilarity(a, b))
}

func TestJaccardSimilarityMostlyDisjointIsLow(t *testing.T) {
	a := normalizeTokens("apples and oranges")
	b := normalizeTokens("goblins and dragons")
	require.Less(t, jaccardSimilarity(a, b), 0.5)
}
