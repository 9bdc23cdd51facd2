// Reference resolution for cross-entity links: the catalog stores
// relationships between rows as by-value reference triples
// ({index, name, url}) instead of foreign keys (spec §3/§9), and
// something has to walk those triples back to the entity they point
// at. Grounded on
// original_source/app/services/d5e/reference_resolver.py
// (D5eReferenceResolver.resolve_reference/resolve_deep), the one place
// in the original program that implements this.
package repository

import (
	"context"
	"strings"

	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// maxReferenceDepth bounds resolveDeep's recursion: at this depth the
// remaining data is returned unresolved, without an error. Cycles are
// reported separately as CircularReferenceError.
const maxReferenceDepth = 10

// ReferenceResolver resolves RefTriples to the Entity they name,
// following chains of nested references. It is grounded on the
// original's category/url cache, scoped to one resolver instance
// rather than a module-level singleton, so pack priority can vary
// per caller without cross-request leakage.
type ReferenceResolver struct {
	store *store.ContentStore
	cache map[string]Entity
}

// NewReferenceResolver wires a resolver over the content store.
func NewReferenceResolver(s *store.ContentStore) *ReferenceResolver {
	return &ReferenceResolver{store: s, cache: map[string]Entity{}}
}

// ResolveReference resolves one RefTriple to the Entity it points at.
// It returns a *store.ReferenceNotFoundError when no row matches the
// triple's index under ref's parsed kind.
func (r *ReferenceResolver) ResolveReference(ctx context.Context, ref RefTriple, priority []string) (*Entity, error) {
	if cached, ok := r.cache[ref.URL]; ok {
		return &cached, nil
	}

	kind, index, err := parseReferenceURL(ref.URL)
	if err != nil {
		return nil, err
	}

	row, err := r.store.GetByIndex(ctx, kind, index, priority)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &store.ReferenceNotFoundError{Index: ref.Index, URL: ref.URL}
	}

	entity, err := rowToEntity(kind, *row)
	if err != nil {
		return nil, err
	}
	r.cache[ref.URL] = *entity
	return entity, nil
}

// ResolveDeep walks data's nested maps and slices, replacing every
// by-value reference triple with the Data of the entity it names,
// recursively, up to maxReferenceDepth deep. It fails fast with a
// *store.CircularReferenceError the moment a reference's URL reappears
// on its own resolution path, and a *store.ReferenceNotFoundError if a
// reference names an entity that does not exist.
func (r *ReferenceResolver) ResolveDeep(ctx context.Context, data map[string]interface{}, priority []string) (map[string]interface{}, error) {
	resolved, err := r.resolveDeep(ctx, data, priority, 0, nil)
	if err != nil {
		return nil, err
	}
	out, _ := resolved.(map[string]interface{})
	return out, nil
}

func (r *ReferenceResolver) resolveDeep(ctx context.Context, obj interface{}, priority []string, depth int, visited []string) (interface{}, error) {
	if depth >= maxReferenceDepth {
		return obj, nil
	}

	switch v := obj.(type) {
	case map[string]interface{}:
		if ref, ok := asRefTriple(v); ok {
			for _, u := range visited {
				if u == ref.URL {
					return nil, &store.CircularReferenceError{Path: append(append([]string{}, visited...), ref.URL)}
				}
			}

			entity, err := r.ResolveReference(ctx, ref, priority)
			if err != nil {
				return nil, err
			}
			return r.resolveDeep(ctx, entity.Data, priority, depth+1, append(visited, ref.URL))
		}

		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			resolvedVal, err := r.resolveDeep(ctx, val, priority, depth, visited)
			if err != nil {
				return nil, err
			}
			out[key] = resolvedVal
		}
		return out, nil

	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			resolvedItem, err := r.resolveDeep(ctx, item, priority, depth, visited)
			if err != nil {
				return nil, err
			}
			out[i] = resolvedItem
		}
		return out, nil

	default:
		return obj, nil
	}
}

// asRefTriple reports whether v is a by-value reference — a map with
// exactly the index/name/url keys and nothing else. A map carrying
// extra fields is a resolved entity already, not a reference to chase.
func asRefTriple(v map[string]interface{}) (RefTriple, bool) {
	if len(v) != 3 {
		return RefTriple{}, false
	}
	index, iok := v["index"].(string)
	name, nok := v["name"].(string)
	url, uok := v["url"].(string)
	if !iok || !nok || !uok {
		return RefTriple{}, false
	}
	return RefTriple{Index: index, Name: name, URL: url}, true
}

// parseReferenceURL splits a reference URL shaped "/api/{category}/{index}"
// into the store.Kind it names and the entity's index, relying on
// store.Kind values already being the plural category names the
// content pack uses as URL path segments (e.g. "classes", "spells").
func parseReferenceURL(url string) (store.Kind, string, error) {
	parts := strings.Split(strings.Trim(url, "/"), "/")
	if len(parts) != 3 || parts[0] != "api" {
		return "", "", &store.InvalidArgumentError{Argument: "url", Value: url, Reason: "expected /api/{category}/{index}"}
	}
	kind := store.Kind(parts[1])
	if !store.IsValidKind(kind) {
		return "", "", &store.InvalidArgumentError{Argument: "url", Value: url, Reason: "unrecognized category " + parts[1]}
	}
	return kind, parts[2], nil
}
