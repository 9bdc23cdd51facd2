package repository

import (
	"context"

	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// MonsterRepository adds monster-specific filters on top of the
// common Repository interface.
//
// Grounded on original_source/app/repositories/d5e/monster_repository.py
// (per _INDEX.md): get_by_cr_range.
type MonsterRepository struct {
	Repository
	store *store.ContentStore
}

// NewMonsterRepository returns a repository over the monster kind table.
func NewMonsterRepository(s *store.ContentStore) *MonsterRepository {
	return &MonsterRepository{Repository: NewRepository(s, store.KindMonster), store: s}
}

// GetByCRRange returns every monster whose challenge_rating falls in
// [min, max] inclusive.
func (r *MonsterRepository) GetByCRRange(ctx context.Context, min, max float64, priority []string) ([]Entity, error) {
	rows, err := r.store.FilterByRange(ctx, store.KindMonster, "challenge_rating", min, max, priority)
	if err != nil {
		return nil, err
	}
	return rowsToEntitiesFor(store.KindMonster, rows), nil
}
