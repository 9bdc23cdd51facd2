package repository

import (
	"context"

	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// EquipmentRepository adds equipment-specific filters on top of the
// common Repository interface.
//
// Grounded on original_source/app/repositories/d5e/equipment_repository.py
// (per _INDEX.md): get_by_category, get_weapons.
type EquipmentRepository struct {
	Repository
	store *store.ContentStore
}

// NewEquipmentRepository returns a repository over the equipment kind table.
func NewEquipmentRepository(s *store.ContentStore) *EquipmentRepository {
	return &EquipmentRepository{Repository: NewRepository(s, store.KindEquipment), store: s}
}

// GetByCategory returns every item whose equipment_category field
// equals category (e.g. "Weapon", "Armor", "Adventuring Gear").
func (r *EquipmentRepository) GetByCategory(ctx context.Context, category string, priority []string) ([]Entity, error) {
	rows, err := r.store.FilterBy(ctx, store.KindEquipment, "equipment_category", category, priority)
	if err != nil {
		return nil, err
	}
	return rowsToEntitiesFor(store.KindEquipment, rows), nil
}

// GetWeapons is a convenience shorthand for GetByCategory(ctx, "Weapon", ...).
func (r *EquipmentRepository) GetWeapons(ctx context.Context, priority []string) ([]Entity, error) {
	return r.GetByCategory(ctx, "Weapon", priority)
}
