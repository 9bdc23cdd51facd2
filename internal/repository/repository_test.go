package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

func openTestStore(t *testing.T) *store.ContentStore {
	t.Helper()
	s, err := store.Open(config.StoreConfig{
		Path: ":memory:", MaxOpenConns: 1, BusyTimeout: "5s", Synchronous: "NORMAL", VectorExtension: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBaseRepositoryGetByIndexStripsPackID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertContentPack(ctx, "srd", "1.0", "wotc", true))
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{
		Index: "fireball", Name: "Fireball", URL: "/spells/fireball", ContentPackID: "srd",
		Data: `{"level":3,"school":"Evocation"}`,
	}, nil, 384))

	repo := NewRepository(s, store.KindSpell)
	e, err := repo.GetByIndex(ctx, "fireball", nil)
	require.NoError(t, err)
	require.NotNil(t, e)
	require.Equal(t, "Fireball", e.Name)
	level, ok := e.Float64("level")
	require.True(t, ok)
	require.Equal(t, 3.0, level)
}

func TestBaseRepositorySkipsMalformedRow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertContentPack(ctx, "srd", "1.0", "wotc", true))
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{Index: "good", Name: "Good Spell", ContentPackID: "srd", Data: `{"level":1}`}, nil, 384))
	// InsertRow always writes valid JSON via our own path, so simulate a
	// malformed blob by writing directly through the DB.
	_, err := s.DB().ExecContext(ctx, `INSERT INTO spells ("index", name, url, content_pack_id, data) VALUES (?, ?, '', ?, ?)`,
		"bad", "Bad Spell", "srd", `not json`)
	require.NoError(t, err)

	repo := NewRepository(s, store.KindSpell)
	entities, err := repo.ListAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	require.Equal(t, "good", entities[0].Index)
}

func TestClassRepositoryGetByHitDie(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertContentPack(ctx, "srd", "1.0", "wotc", true))
	require.NoError(t, s.InsertRow(ctx, store.KindClass, store.Row{Index: "fighter", Name: "Fighter", ContentPackID: "srd", Data: `{"hit_die":10}`}, nil, 384))
	require.NoError(t, s.InsertRow(ctx, store.KindClass, store.Row{Index: "wizard", Name: "Wizard", ContentPackID: "srd", Data: `{"hit_die":6}`}, nil, 384))

	repo := NewClassRepository(s)
	classes, err := repo.GetByHitDie(ctx, 10, nil)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	require.Equal(t, "fighter", classes[0].Index)
}

func TestSpellRepositoryFilters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertContentPack(ctx, "srd", "1.0", "wotc", true))
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{
		Index: "fireball", Name: "Fireball", ContentPackID: "srd",
		Data: `{"level":3,"school":"Evocation","classes":["Wizard","Sorcerer"]}`,
	}, nil, 384))
	require.NoError(t, s.InsertRow(ctx, store.KindSpell, store.Row{
		Index: "cure-wounds", Name: "Cure Wounds", ContentPackID: "srd",
		Data: `{"level":1,"school":"Evocation","classes":["Cleric","Druid"]}`,
	}, nil, 384))

	repo := NewSpellRepository(s)

	byLevel, err := repo.GetByLevel(ctx, 3, nil)
	require.NoError(t, err)
	require.Len(t, byLevel, 1)
	require.Equal(t, "fireball", byLevel[0].Index)

	bySchool, err := repo.GetBySchool(ctx, "Evocation", nil)
	require.NoError(t, err)
	require.Len(t, bySchool, 2)

	byClass, err := repo.GetByClass(ctx, "Cleric", nil)
	require.NoError(t, err)
	require.Len(t, byClass, 1)
	require.Equal(t, "cure-wounds", byClass[0].Index)
}

func TestMonsterRepositoryGetByCRRange(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertContentPack(ctx, "srd", "1.0", "wotc", true))
	require.NoError(t, s.InsertRow(ctx, store.KindMonster, store.Row{Index: "goblin", Name: "Goblin", ContentPackID: "srd", Data: `{"challenge_rating":0.25}`}, nil, 384))
	require.NoError(t, s.InsertRow(ctx, store.KindMonster, store.Row{Index: "dragon", Name: "Ancient Red Dragon", ContentPackID: "srd", Data: `{"challenge_rating":24}`}, nil, 384))

	repo := NewMonsterRepository(s)
	low, err := repo.GetByCRRange(ctx, 0, 1, nil)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "goblin", low[0].Index)
}

func TestEquipmentRepositoryGetWeapons(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.UpsertContentPack(ctx, "srd", "1.0", "wotc", true))
	require.NoError(t, s.InsertRow(ctx, store.KindEquipment, store.Row{Index: "longsword", Name: "Longsword", ContentPackID: "srd", Data: `{"equipment_category":"Weapon"}`}, nil, 384))
	require.NoError(t, s.InsertRow(ctx, store.KindEquipment, store.Row{Index: "rope", Name: "Rope", ContentPackID: "srd", Data: `{"equipment_category":"Adventuring Gear"}`}, nil, 384))

	repo := NewEquipmentRepository(s)
	weapons, err := repo.GetWeapons(ctx, nil)
	require.NoError(t, err)
	require.Len(t, weapons, 1)
	require.Equal(t, "longsword", weapons[0].Index)
}

func TestFieldMappingCacheBuildsPascalCaseNames(t *testing.T) {
	resetFieldMappingCache()
	fm := getFieldMapping(store.KindSpell, map[string]interface{}{"challenge_rating": 1.0, "classes": []interface{}{"a"}})
	require.Equal(t, "ChallengeRating", fm.renames["challenge_rating"])
	require.True(t, fm.jsonEncoded["classes"])
	require.False(t, fm.jsonEncoded["challenge_rating"])
}
