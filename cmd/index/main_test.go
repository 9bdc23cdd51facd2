package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/embedding"
	"github.com/ai-gamemaster/knowledge-core/internal/logging"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

func openTestStore(t *testing.T) *store.ContentStore {
	t.Helper()
	cfg := config.DefaultConfig().Store
	cfg.Path = ":memory:"
	s, err := store.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestToEngineConfigCopiesAllFields(t *testing.T) {
	c := config.EmbeddingConfig{
		Provider: "ollama", Dimensions: 256, OllamaEndpoint: "http://x", OllamaModel: "m",
		GenAIAPIKey: "k", GenAIModel: "g", TaskType: "t", BatchSize: 32,
	}
	out := toEngineConfig(c)
	require.Equal(t, "ollama", out.Provider)
	require.Equal(t, 256, out.Dimensions)
	require.Equal(t, "http://x", out.OllamaEndpoint)
	require.Equal(t, 32, out.BatchSize)
}

func TestIndexKindEmbedsAndStoresVectors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertContentPack(ctx, "pack", "1.0", "tester", true))
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{
		Index: "fireball", Name: "Fireball", ContentPackID: "pack", Data: `{"level":3}`,
	}, nil, 0))
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{
		Index: "magic-missile", Name: "Magic Missile", ContentPackID: "pack", Data: `{"level":1}`,
	}, nil, 0))

	rows, err := s.RowsMissingEmbedding(ctx, store.KindSpell, 4, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	engine := embedding.NewStubEngine(4)
	log := logging.Get(logging.CategoryIndex)
	done, err := indexKind(ctx, s, engine, store.KindSpell, rows, 1, log)
	require.NoError(t, err)
	require.Equal(t, 2, done)

	remaining, err := s.RowsMissingEmbedding(ctx, store.KindSpell, 4, false)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestFormatRowForEmbeddingUsesKindFormatter(t *testing.T) {
	row := store.Row{Index: "fireball", Name: "Fireball", Data: `{"level":3,"school":"Evocation"}`}
	text := formatRowForEmbedding(store.KindSpell, row)
	require.Contains(t, text, "Fireball")
	require.Contains(t, text, "Level 3")
}
