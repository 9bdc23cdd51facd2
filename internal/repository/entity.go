// Package repository implements the session-isolated read API over the
// content store (spec component C2): one repository per catalog kind,
// plus four specialized repositories exposing domain filters.
//
// Grounded on spec §4.2's session-isolation contract: every public call
// opens the store, reads, converts rows to pure value objects with no
// content-pack id or database handle, and returns. There is no
// equivalent file in the teacher repo (codenerd has no relational
// catalog); the shape here follows the teacher's general style of
// explicit, composed structs over heavy generics (the teacher codebase
// uses no type-parameterized functions), with a shared baseRepository
// embedded into each specialized repository.
package repository

import (
	"encoding/json"
	"fmt"

	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// Entity is the value object every repository method returns: the
// shared catalog fields plus kind-specific data parsed from the stored
// JSON blob. It carries no content-pack id and no database handle.
type Entity struct {
	Index string
	Name  string
	URL   string
	Data  map[string]interface{}
}

// RefTriple is a resolvable by-value cross-entity reference, per spec
// §3 ("cross-entity references are by-value triples... never by
// foreign key").
type RefTriple struct {
	Index string `json:"index"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// ValidationError reports a row that failed to convert to a domain
// Entity — malformed JSON in the data column, most commonly.
type ValidationError struct {
	Kind  store.Kind
	Index string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("repository: validation failed for %s[%s]: %s", e.Kind, e.Index, e.Msg)
}

// rowToEntity parses a store.Row's JSON data blob into the domain
// Entity shape. Per the session-isolation contract, ContentPackID is
// intentionally dropped here — it never reaches the caller.
func rowToEntity(k store.Kind, row store.Row) (*Entity, error) {
	data := map[string]interface{}{}
	if row.Data != "" {
		if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
			return nil, &ValidationError{Kind: k, Index: row.Index, Msg: err.Error()}
		}
	}
	getFieldMapping(k, data) // populate the process-wide cache on first use for this kind
	return &Entity{Index: row.Index, Name: row.Name, URL: row.URL, Data: data}, nil
}

// Float64 reads a numeric field from Data, returning (0, false) if
// absent or not a number.
func (e Entity) Float64(field string) (float64, bool) {
	v, ok := e.Data[field]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// String reads a string field from Data, returning ("", false) if
// absent or not a string.
func (e Entity) String(field string) (string, bool) {
	v, ok := e.Data[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
