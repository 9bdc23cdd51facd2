package repository

import (
	"context"

	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// ClassRepository adds character-class-specific filters on top of the
// common Repository interface.
//
// Grounded on original_source/app/repositories/d5e/class_repository.py
// (per _INDEX.md): get_by_hit_die.
type ClassRepository struct {
	Repository
	store *store.ContentStore
}

// NewClassRepository returns a repository over the class kind table.
func NewClassRepository(s *store.ContentStore) *ClassRepository {
	return &ClassRepository{Repository: NewRepository(s, store.KindClass), store: s}
}

// GetByHitDie returns every class whose hit_die field equals die (e.g.
// a d10 fighter vs a d6 wizard).
func (r *ClassRepository) GetByHitDie(ctx context.Context, die int, priority []string) ([]Entity, error) {
	rows, err := r.store.FilterByRange(ctx, store.KindClass, "hit_die", float64(die), float64(die), priority)
	if err != nil {
		return nil, err
	}
	return rowsToEntitiesFor(store.KindClass, rows), nil
}

// GetByIndexResolved returns the class named by index with every
// by-value reference triple in its data (e.g. subclasses, starting
// equipment, features) replaced by the entity it points at.
//
// Grounded on ClassRepository.get_spellcasting_classes/get_by_hit_die's
// resolve_references flag in
// original_source/app/repositories/d5e/class_repository.py, which
// threads a D5eReferenceResolver through the same kind of lookup this
// performs over ReferenceResolver.
func (r *ClassRepository) GetByIndexResolved(ctx context.Context, index string, priority []string) (*Entity, error) {
	entity, err := r.Repository.GetByIndex(ctx, index, priority)
	if err != nil || entity == nil {
		return entity, err
	}

	resolved, err := NewReferenceResolver(r.store).ResolveDeep(ctx, entity.Data, priority)
	if err != nil {
		return nil, err
	}
	entity.Data = resolved
	return entity, nil
}
