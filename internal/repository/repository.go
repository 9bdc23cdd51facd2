package repository

import (
	"context"

	"github.com/ai-gamemaster/knowledge-core/internal/logging"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// Repository is the common interface every kind repository satisfies,
// per spec §4.2.
type Repository interface {
	GetByIndex(ctx context.Context, index string, priority []string) (*Entity, error)
	GetByName(ctx context.Context, name string, priority []string) (*Entity, error)
	ListAll(ctx context.Context, priority []string) ([]Entity, error)
	Search(ctx context.Context, substring string, priority []string) ([]Entity, error)
	FilterBy(ctx context.Context, field, value string, priority []string) ([]Entity, error)
	Exists(ctx context.Context, index string, priority []string) (bool, error)
	Count(ctx context.Context, priority []string) (int, error)
	GetIndices(ctx context.Context, priority []string) ([]string, error)
	GetNames(ctx context.Context, priority []string) ([]string, error)
}

// baseRepository implements Repository for a single store.Kind,
// delegating the SQL-shaped work to store.ContentStore and converting
// every returned row to a session-isolated Entity.
type baseRepository struct {
	store *store.ContentStore
	kind  store.Kind
}

// NewRepository returns the base repository for kind k. Specialized
// repositories embed this and add domain filters on top.
func NewRepository(s *store.ContentStore, k store.Kind) Repository {
	return &baseRepository{store: s, kind: k}
}

func (r *baseRepository) GetByIndex(ctx context.Context, index string, priority []string) (*Entity, error) {
	row, err := r.store.GetByIndex(ctx, r.kind, index, priority)
	if err != nil || row == nil {
		return nil, err
	}
	return rowToEntity(r.kind, *row)
}

func (r *baseRepository) GetByName(ctx context.Context, name string, priority []string) (*Entity, error) {
	row, err := r.store.GetByName(ctx, r.kind, name, priority)
	if err != nil || row == nil {
		return nil, err
	}
	return rowToEntity(r.kind, *row)
}

func (r *baseRepository) ListAll(ctx context.Context, priority []string) ([]Entity, error) {
	rows, err := r.store.ListAll(ctx, r.kind, priority)
	if err != nil {
		return nil, err
	}
	return r.rowsToEntities(rows), nil
}

func (r *baseRepository) Search(ctx context.Context, substring string, priority []string) ([]Entity, error) {
	rows, err := r.store.SearchSubstring(ctx, r.kind, substring, priority)
	if err != nil {
		return nil, err
	}
	return r.rowsToEntities(rows), nil
}

func (r *baseRepository) FilterBy(ctx context.Context, field, value string, priority []string) ([]Entity, error) {
	rows, err := r.store.FilterBy(ctx, r.kind, field, value, priority)
	if err != nil {
		return nil, err
	}
	return r.rowsToEntities(rows), nil
}

func (r *baseRepository) Exists(ctx context.Context, index string, priority []string) (bool, error) {
	return r.store.Exists(ctx, r.kind, index, priority)
}

func (r *baseRepository) Count(ctx context.Context, priority []string) (int, error) {
	return r.store.Count(ctx, r.kind, priority)
}

func (r *baseRepository) GetIndices(ctx context.Context, priority []string) ([]string, error) {
	entities, err := r.ListAll(ctx, priority)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Index
	}
	return out, nil
}

func (r *baseRepository) GetNames(ctx context.Context, priority []string) ([]string, error) {
	entities, err := r.ListAll(ctx, priority)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out, nil
}

// rowsToEntities converts every row, logging and skipping (not
// failing the whole batch on) any row whose data blob doesn't parse —
// per spec §4.2's failure semantics for per-row validation.
func (r *baseRepository) rowsToEntities(rows []store.Row) []Entity {
	return rowsToEntitiesFor(r.kind, rows)
}

// rowsToEntitiesFor is the package-level form shared by the
// specialized repositories, which query store.ContentStore directly
// for filters the common Repository interface doesn't expose.
func rowsToEntitiesFor(k store.Kind, rows []store.Row) []Entity {
	out := make([]Entity, 0, len(rows))
	for _, row := range rows {
		e, err := rowToEntity(k, row)
		if err != nil {
			logging.Get(logging.CategoryRepo).Warn("skipping invalid row kind=%s index=%s: %v", k, row.Index, err)
			continue
		}
		out = append(out, *e)
	}
	return out
}
