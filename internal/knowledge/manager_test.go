package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/embedding"
	"github.com/ai-gamemaster/knowledge-core/internal/repository"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

func repositoryEntityFixture() repository.Entity {
	return repository.Entity{
		Index: "fireball",
		Name:  "Fireball",
		URL:   "/spells/fireball",
		Data:  map[string]interface{}{"level": 3.0, "school": "Evocation", "desc": "A bright streak flashes."},
	}
}

func openTestStore(t *testing.T) *store.ContentStore {
	t.Helper()
	s, err := store.Open(config.StoreConfig{
		Path: ":memory:", MaxOpenConns: 1, BusyTimeout: "5s", Synchronous: "NORMAL", VectorExtension: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSearchFindsMatchingSpell(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	engine := embedding.NewStubEngine(16)

	require.NoError(t, s.UpsertContentPack(ctx, "srd", "1.0", "wotc", true))
	vec, err := engine.Embed(ctx, "Fireball")
	require.NoError(t, err)
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{
		Index: "fireball", Name: "Fireball", ContentPackID: "srd", Data: `{"level":3,"school":"Evocation"}`,
	}, vec, 16))

	mgr := NewManager(s, engine)
	results, err := mgr.Search(ctx, "Fireball", []string{"spells"}, 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results.Items)
	require.Equal(t, "spells", results.Items[0].Source)
	require.Contains(t, results.Items[0].Content, "Fireball")
}

func TestSearchRespectsScoreThreshold(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	engine := embedding.NewStubEngine(16)

	require.NoError(t, s.UpsertContentPack(ctx, "srd", "1.0", "wotc", true))
	vec, err := engine.Embed(ctx, "unrelated text")
	require.NoError(t, err)
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{
		Index: "whatever", Name: "Whatever", ContentPackID: "srd", Data: `{}`,
	}, vec, 16))

	mgr := NewManager(s, engine)
	results, err := mgr.Search(ctx, "completely different query", []string{"spells"}, 5, 0.999)
	require.NoError(t, err)
	require.Empty(t, results.Items)
}

func TestSearchLoreRanksByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	engine := embedding.NewStubEngine(16)
	mgr := NewManager(s, engine)

	mgr.Memory().SetLore("camp1", []LoreDocument{
		{Key: "tavern", Content: "The Rusty Anchor tavern is run by a retired pirate."},
		{Key: "castle", Content: "The northern castle has been abandoned for decades."},
	})

	results, err := mgr.Search(ctx, "The Rusty Anchor tavern is run by a retired pirate.", []string{"lore_camp1"}, 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results.Items)
	require.Equal(t, "lore_camp1", results.Items[0].Source)
	require.Equal(t, "The Rusty Anchor tavern is run by a retired pirate.", results.Items[0].Content)
}

func TestDedupeCollapsesSameSourceAndContent(t *testing.T) {
	items := []Item{
		{Content: "same content here", Source: "spells", RelevanceScore: 0.9},
		{Content: "same content here", Source: "spells", RelevanceScore: 0.8},
		{Content: "different", Source: "spells", RelevanceScore: 0.7},
	}
	deduped := dedupe(items)
	require.Len(t, deduped, 2)
}

func TestResolveKBTypesDefaultsToAll(t *testing.T) {
	sources := resolveKBTypes(nil)
	require.ElementsMatch(t, allTableKBTypes, sources)
}

func TestFormatEntitySpell(t *testing.T) {
	text := FormatEntity(store.KindSpell, repositoryEntityFixture())
	require.Contains(t, text, "Fireball")
	require.Contains(t, text, "Level 3")
}
