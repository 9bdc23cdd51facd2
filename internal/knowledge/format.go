package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ai-gamemaster/knowledge-core/internal/repository"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// formatVectorRow adapts a store.VectorRow (the raw ANN-search result)
// into the same kind-specific textual view FormatEntity produces, by
// parsing its JSON data blob into a throwaway repository.Entity, since
// ANN search results come directly from C1. The indexing job builds its
// Entity from a store.Row the same way.
func formatVectorRow(k store.Kind, row store.VectorRow) string {
	data := map[string]interface{}{}
	if row.Data != "" {
		_ = json.Unmarshal([]byte(row.Data), &data)
	}
	return FormatEntity(k, repository.Entity{Index: row.Index, Name: row.Name, URL: row.URL, Data: data})
}

// FormatEntity produces the kind-specific textual view used both as
// the indexing job's embedding input (spec §4.3) and as a search
// item's content field (spec §4.4a). Kinds without a bespoke template
// fall back to a generic "<name>: <url>" rendering, with " | <desc>"
// appended when the entity has a description.
func FormatEntity(k store.Kind, e repository.Entity) string {
	switch k {
	case store.KindSpell:
		level, _ := e.Float64("level")
		school, _ := e.String("school")
		desc := firstString(e, "desc", "description")
		return fmt.Sprintf("Spell: %s | Level %d | School: %s | %s", e.Name, int(level), school, desc)
	case store.KindMonster:
		monsterType, _ := e.String("type")
		cr, _ := e.Float64("challenge_rating")
		hp, _ := e.Float64("hit_points")
		return fmt.Sprintf("Monster: %s | Type %s | CR %v | HP %v", e.Name, monsterType, cr, hp)
	case store.KindClass, store.KindSubclass:
		hitDie, _ := e.Float64("hit_die")
		desc := firstString(e, "desc", "description")
		if hitDie > 0 {
			return fmt.Sprintf("Class: %s | Hit Die d%d | %s", e.Name, int(hitDie), desc)
		}
		return fmt.Sprintf("Class: %s | %s", e.Name, desc)
	case store.KindEquipment, store.KindMagicItem:
		category, _ := e.String("equipment_category")
		desc := firstString(e, "desc", "description")
		return fmt.Sprintf("Equipment: %s | Category %s | %s", e.Name, category, desc)
	case store.KindFeat, store.KindTrait, store.KindFeature:
		desc := firstString(e, "desc", "description")
		return fmt.Sprintf("%s: %s | %s", kindLabel(k), e.Name, desc)
	default:
		desc := firstString(e, "desc", "description")
		if desc != "" {
			return fmt.Sprintf("%s: %s | %s", e.Name, e.URL, desc)
		}
		return fmt.Sprintf("%s: %s", e.Name, e.URL)
	}
}

var kindLabels = map[store.Kind]string{
	store.KindFeat:    "Feat",
	store.KindTrait:   "Trait",
	store.KindFeature: "Feature",
}

func kindLabel(k store.Kind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

func firstString(e repository.Entity, fields ...string) string {
	for _, f := range fields {
		if v, ok := e.String(f); ok && v != "" {
			return v
		}
		if arr, ok := e.Data[f].([]interface{}); ok {
			var parts []string
			for _, a := range arr {
				if s, ok := a.(string); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, " ")
			}
		}
	}
	return ""
}
