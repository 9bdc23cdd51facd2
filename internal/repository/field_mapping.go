package repository

import (
	"strings"
	"sync"
	"unicode"

	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// fieldMapping holds the column→domain-field renames and the set of
// JSON-encoded (nested object/array) keys observed for a kind, per
// spec §4.2's field-mapping cache. It is purely a performance
// affordance over repeatedly inspecting the JSON shape: Entity.Data
// is always keyed by the original JSON names regardless of what's
// cached here, so a stale or incomplete mapping cannot change the
// result a caller sees, only how quickly a future lookup decides
// whether a key is a nested blob.
type fieldMapping struct {
	renames     map[string]string
	jsonEncoded map[string]bool
}

var (
	fieldMappingCache   = map[store.Kind]*fieldMapping{}
	fieldMappingCacheMu sync.RWMutex
)

// getFieldMapping returns the cached mapping for k, building it from
// sample on first use. Double-checked locking: the common case (cache
// hit) only takes a read lock.
func getFieldMapping(k store.Kind, sample map[string]interface{}) *fieldMapping {
	fieldMappingCacheMu.RLock()
	if fm, ok := fieldMappingCache[k]; ok {
		fieldMappingCacheMu.RUnlock()
		return fm
	}
	fieldMappingCacheMu.RUnlock()

	fieldMappingCacheMu.Lock()
	defer fieldMappingCacheMu.Unlock()
	if fm, ok := fieldMappingCache[k]; ok {
		return fm
	}
	fm := buildFieldMapping(sample)
	fieldMappingCache[k] = fm
	return fm
}

func buildFieldMapping(sample map[string]interface{}) *fieldMapping {
	fm := &fieldMapping{renames: map[string]string{}, jsonEncoded: map[string]bool{}}
	for key, val := range sample {
		fm.renames[key] = toDomainFieldName(key)
		switch val.(type) {
		case map[string]interface{}, []interface{}:
			fm.jsonEncoded[key] = true
		}
	}
	return fm
}

// toDomainFieldName converts a snake_case JSON key to PascalCase, e.g.
// "challenge_rating" -> "ChallengeRating".
func toDomainFieldName(jsonKey string) string {
	parts := strings.Split(jsonKey, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// resetFieldMappingCache clears the cache; test-only.
func resetFieldMappingCache() {
	fieldMappingCacheMu.Lock()
	defer fieldMappingCacheMu.Unlock()
	fieldMappingCache = map[store.Kind]*fieldMapping{}
}
