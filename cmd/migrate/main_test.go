package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/logging"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

func testLogger() *logging.Logger {
	return logging.Get(logging.CategoryMigrate)
}

func openTestStore(t *testing.T) *store.ContentStore {
	t.Helper()
	cfg := config.DefaultConfig().Store
	cfg.Path = ":memory:"
	s, err := store.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestToRowRequiresIndexAndName(t *testing.T) {
	_, err := toRow(store.KindSpell, "pack", kindRecord{"name": "Fireball"})
	require.Error(t, err)

	_, err = toRow(store.KindSpell, "pack", kindRecord{"index": "fireball"})
	require.Error(t, err)

	row, err := toRow(store.KindSpell, "pack", kindRecord{"index": "fireball", "name": "Fireball", "level": 3.0})
	require.NoError(t, err)
	require.Equal(t, "fireball", row.Index)
	require.Equal(t, "Fireball", row.Name)
	require.Equal(t, "pack", row.ContentPackID)
	require.Contains(t, row.Data, `"level":3`)
}

func TestMigrateKindInsertsAllRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertContentPack(ctx, "pack", "1.0", "tester", true))
	packID = "pack"

	records := []kindRecord{
		{"index": "fireball", "name": "Fireball"},
		{"index": "magic-missile", "name": "Magic Missile"},
	}
	log := testLogger()
	count, err := migrateKind(ctx, s, store.KindSpell, records, log)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	n, err := s.Count(ctx, store.KindSpell, []string{"pack"})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMigrateKindRollsBackOnValidationFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertContentPack(ctx, "pack", "1.0", "tester", true))
	packID = "pack"

	records := []kindRecord{
		{"index": "fireball", "name": "Fireball"},
		{"name": "missing index"},
	}
	log := testLogger()
	_, err := migrateKind(ctx, s, store.KindSpell, records, log)
	require.Error(t, err)

	n, err := s.Count(ctx, store.KindSpell, []string{"pack"})
	require.NoError(t, err)
	require.Equal(t, 0, n, "a failed record must roll back the whole kind, not just itself")
}
