package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
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

func TestVerifyKindsReportsEmptyTables(t *testing.T) {
	s := openTestStore(t)
	reports, err := verifyKinds(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, reports, len(store.AllKinds))
	for _, r := range reports {
		require.False(t, r.TableMissing)
		require.Equal(t, 0, r.RowCount)
		require.False(t, r.HasEmbeddings)
	}
}

func TestVerifyKindsDetectsRowsAndEmbeddings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertContentPack(ctx, "pack", "1.0", "tester", true))
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{
		Index: "fireball", Name: "Fireball", ContentPackID: "pack", Data: "{}",
	}, []float32{0.1, 0.2}, 2))

	reports, err := verifyKinds(ctx, s)
	require.NoError(t, err)

	var spellReport *kindReport
	for i := range reports {
		if reports[i].Kind == store.KindSpell {
			spellReport = &reports[i]
		}
	}
	require.NotNil(t, spellReport)
	require.Equal(t, 1, spellReport.RowCount)
	require.True(t, spellReport.HasEmbeddings)
}
