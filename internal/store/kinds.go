package store

// Kind identifies one of the 25 catalog entity categories. Every Kind
// has a backing SQL table of the same name (pluralized, snake_case)
// and is the unit the whitelist in TableName validates against.
type Kind string

const (
	KindAbilityScore      Kind = "ability_scores"
	KindAlignment         Kind = "alignments"
	KindCondition         Kind = "conditions"
	KindDamageType        Kind = "damage_types"
	KindLanguage          Kind = "languages"
	KindProficiency       Kind = "proficiencies"
	KindSkill             Kind = "skills"
	KindBackground        Kind = "backgrounds"
	KindClass             Kind = "classes"
	KindFeat              Kind = "feats"
	KindRace              Kind = "races"
	KindSubclass          Kind = "subclasses"
	KindSubrace           Kind = "subraces"
	KindTrait             Kind = "traits"
	KindFeature           Kind = "features"
	KindLevel             Kind = "levels"
	KindEquipment         Kind = "equipment"
	KindEquipmentCategory Kind = "equipment_categories"
	KindMagicItem         Kind = "magic_items"
	KindMagicSchool       Kind = "magic_schools"
	KindWeaponProperty    Kind = "weapon_properties"
	KindSpell             Kind = "spells"
	KindMonster           Kind = "monsters"
	KindRule              Kind = "rules"
	KindRuleSection       Kind = "rule_sections"
)

// AllKinds lists every recognized entity kind. It is the compile-time
// whitelist that every dynamic-SQL table-name interpolation validates
// against (spec §4.4 "table-name safety").
var AllKinds = []Kind{
	KindAbilityScore, KindAlignment, KindCondition, KindDamageType, KindLanguage,
	KindProficiency, KindSkill,
	KindBackground, KindClass, KindFeat, KindRace, KindSubclass, KindSubrace, KindTrait,
	KindFeature, KindLevel,
	KindEquipment, KindEquipmentCategory, KindMagicItem, KindMagicSchool, KindWeaponProperty,
	KindSpell, KindMonster, KindRule, KindRuleSection,
}

var validKinds = func() map[Kind]bool {
	m := make(map[Kind]bool, len(AllKinds))
	for _, k := range AllKinds {
		m[k] = true
	}
	return m
}()

// IsValidKind reports whether k is one of the 25 recognized kinds.
// Every code path that builds SQL by interpolating a table name must
// call this first and fail closed.
func IsValidKind(k Kind) bool {
	return validKinds[k]
}

// TableName validates k against the whitelist and returns its backing
// table name, or an error if k is not recognized. Never format a table
// name into SQL without going through this.
func TableName(k Kind) (string, error) {
	if !IsValidKind(k) {
		return "", &InvalidArgumentError{Argument: "kind", Value: string(k), Reason: "not a recognized catalog kind"}
	}
	return string(k), nil
}

// KindFamily groups kinds into the five families named in the data model.
func KindFamily(k Kind) string {
	switch k {
	case KindAbilityScore, KindAlignment, KindCondition, KindDamageType, KindLanguage, KindProficiency, KindSkill:
		return "mechanics"
	case KindBackground, KindClass, KindFeat, KindRace, KindSubclass, KindSubrace, KindTrait:
		return "character_options"
	case KindFeature, KindLevel:
		return "progression"
	case KindEquipment, KindEquipmentCategory, KindMagicItem, KindMagicSchool, KindWeaponProperty:
		return "equipment"
	case KindSpell, KindMonster, KindRule, KindRuleSection:
		return "spells_monsters_rules"
	default:
		return "unknown"
	}
}
