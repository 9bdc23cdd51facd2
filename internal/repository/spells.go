package repository

import (
	"context"

	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// SpellRepository adds spell-specific filters on top of the common
// Repository interface.
//
// Grounded on original_source/app/repositories/d5e/spell_repository.py
// (per _INDEX.md): get_by_level, get_by_school, get_by_class.
type SpellRepository struct {
	Repository
	store *store.ContentStore
}

// NewSpellRepository returns a repository over the spell kind table.
func NewSpellRepository(s *store.ContentStore) *SpellRepository {
	return &SpellRepository{Repository: NewRepository(s, store.KindSpell), store: s}
}

// GetByLevel returns every spell at the given level (0 for cantrips).
func (r *SpellRepository) GetByLevel(ctx context.Context, level int, priority []string) ([]Entity, error) {
	rows, err := r.store.FilterByRange(ctx, store.KindSpell, "level", float64(level), float64(level), priority)
	if err != nil {
		return nil, err
	}
	return rowsToEntitiesFor(store.KindSpell, rows), nil
}

// GetBySchool returns every spell in the named magic school (e.g.
// "Evocation").
func (r *SpellRepository) GetBySchool(ctx context.Context, school string, priority []string) ([]Entity, error) {
	rows, err := r.store.FilterBy(ctx, store.KindSpell, "school", school, priority)
	if err != nil {
		return nil, err
	}
	return rowsToEntitiesFor(store.KindSpell, rows), nil
}

// GetByClass returns every spell whose class list contains className.
// The classes field is stored as a JSON array inside data, so this
// filters in Go after a full scan rather than via SQL equality.
func (r *SpellRepository) GetByClass(ctx context.Context, className string, priority []string) ([]Entity, error) {
	rows, err := r.store.ListAll(ctx, store.KindSpell, priority)
	if err != nil {
		return nil, err
	}
	all := rowsToEntitiesFor(store.KindSpell, rows)
	out := make([]Entity, 0, len(all))
	for _, e := range all {
		classes, ok := e.Data["classes"].([]interface{})
		if !ok {
			continue
		}
		for _, c := range classes {
			if name, ok := c.(string); ok && name == className {
				out = append(out, e)
				break
			}
			if ref, ok := c.(map[string]interface{}); ok {
				if name, _ := ref["name"].(string); name == className {
					out = append(out, e)
					break
				}
			}
		}
	}
	return out, nil
}
