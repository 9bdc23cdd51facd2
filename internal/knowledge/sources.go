package knowledge

import (
	"strings"

	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

// tableSources is the fixed map binding logical KB types to the kind
// tables they search, per spec §4.4. Progression kinds (features,
// levels) aren't named as their own KB type in spec §4.4's list
// (rules, character_options, spells, monsters, equipment, mechanics);
// they're folded into character_options since a class feature or a
// level-progression row is conceptually a character option.
var tableSources = map[string][]store.Kind{
	"rules":             {store.KindRule, store.KindRuleSection},
	"character_options":  {store.KindBackground, store.KindClass, store.KindFeat, store.KindRace, store.KindSubclass, store.KindSubrace, store.KindTrait, store.KindFeature, store.KindLevel},
	"spells":            {store.KindSpell},
	"monsters":          {store.KindMonster},
	"equipment":         {store.KindEquipment, store.KindEquipmentCategory, store.KindMagicItem, store.KindMagicSchool, store.KindWeaponProperty},
	"mechanics":         {store.KindAbilityScore, store.KindAlignment, store.KindCondition, store.KindDamageType, store.KindLanguage, store.KindProficiency, store.KindSkill},
}

// allTableKBTypes lists every fixed (non-campaign-scoped) KB type.
var allTableKBTypes = []string{"rules", "character_options", "spells", "monsters", "equipment", "mechanics"}

const (
	loreKBPrefix   = "lore_"
	eventsKBPrefix = "events_"
)

// isLoreKB reports whether kbType names a per-campaign lore collection
// and returns its campaign id.
func isLoreKB(kbType string) (campaignID string, ok bool) {
	if strings.HasPrefix(kbType, loreKBPrefix) {
		return strings.TrimPrefix(kbType, loreKBPrefix), true
	}
	return "", false
}

// isEventsKB reports whether kbType names a per-campaign event
// collection and returns its campaign id.
func isEventsKB(kbType string) (campaignID string, ok bool) {
	if strings.HasPrefix(kbType, eventsKBPrefix) {
		return strings.TrimPrefix(kbType, eventsKBPrefix), true
	}
	return "", false
}
