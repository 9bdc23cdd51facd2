// Package planner implements the Query Planner (C5): a deterministic
// rule-based extractor that turns a player's action text and recent
// chat history into an ordered list of retrieval queries.
package planner

import (
	"regexp"
	"strings"
)

// Kind constrains a Query to the fixed set of action categories the
// planner recognizes.
type Kind string

const (
	KindCombat      Kind = "combat"
	KindSpellCast   Kind = "spell_casting"
	KindSkillCheck  Kind = "skill_check"
	KindSocial      Kind = "social"
	KindExploration Kind = "exploration"
	KindRulesLookup Kind = "rules_lookup"
	KindGeneral     Kind = "general"
)

// kindPriority fixes the order queries are emitted in; the orchestrator
// (C6) runs them in this order, then ranks the merged results by score.
var kindPriority = map[Kind]int{
	KindSpellCast:   0,
	KindCombat:      1,
	KindSkillCheck:  2,
	KindSocial:      3,
	KindExploration: 4,
	KindRulesLookup: 4,
	KindGeneral:     5,
}

// Query is one planned retrieval request.
type Query struct {
	Text         string
	Kind         Kind
	ContextHints map[string]interface{}
	KBTypeFilter []string
}

// ChatMessage is the minimal shape the planner needs from chat history.
type ChatMessage struct {
	Role    string
	Content string
}

// commonSpells is a curated fixed list used for direct substring
// matching, independent of the verb-pattern extractor.
var commonSpells = []string{
	"fireball",
	"magic missile",
	"cure wounds",
	"healing word",
	"shield",
	"mage armor",
	"detect magic",
	"light",
	"prestidigitation",
	"eldritch blast",
	"sacred flame",
	"guidance",
	"thaumaturgy",
	"minor illusion",
	"toll the dead",
	"ice knife",
	"burning hands",
	"thunderwave",
	"misty step",
	"counterspell",
}

// d5eSkills lists the 18 canonical 5th-edition skills.
var d5eSkills = []string{
	"acrobatics",
	"animal handling",
	"arcana",
	"athletics",
	"deception",
	"history",
	"insight",
	"intimidation",
	"investigation",
	"medicine",
	"nature",
	"perception",
	"performance",
	"persuasion",
	"religion",
	"sleight of hand",
	"stealth",
	"survival",
}

var (
	spellVerbPattern     = regexp.MustCompile(`(?i)\b(?:cast(?:s|ing)?|invoke[sd]?|use[sd]?)\s+([A-Z][a-zA-Z\s]+)`)
	combatVerbPattern    = regexp.MustCompile(`(?i)\b(?:attack(?:s|ing)?|strike[sd]?|striking|fight(?:s|ing)?)\s+(?:the\s+)?([A-Z][a-zA-Z\s]+)`)
	combatReversePattern = regexp.MustCompile(`(?i)\b(?:the\s+)?([A-Z][a-zA-Z]+)\s+attacks?`)
	// spellTargetPattern catches "Cast <spell> on/at the <creature>" —
	// a spell leveled at a target is still a combat action even though
	// it carries no attack/strike/fight verb of its own.
	spellTargetPattern = regexp.MustCompile(`(?i)\b(?:cast(?:s|ing)?|invoke[sd]?|use[sd]?)\s+[a-zA-Z\s]+?\s+(?:on|at)\s+(?:the\s+)?([a-zA-Z]+)`)
	skillCheckPattern    = regexp.MustCompile(`(?i)\b(?:make\s+(?:a\s+)?|roll\s+(?:for\s+)?)?([A-Z][a-zA-Z\s]+?)\s+check\b`)
	socialVerbPattern    = regexp.MustCompile(`(?i)\b(?:speak(?:s|ing)?|talk(?:s|ing)?|persuad(?:e|es|ing))\b`)
	npcPattern           = regexp.MustCompile(`(?i)\b([A-Z][a-z]+)\s+(?:says?|tells?|nods|shakes|smiles|frowns)\b`)
)

var npcStopWords = map[string]bool{"you": true, "the": true, "and": true}

// Plan extracts the ordered list of queries for one player action. game
// state hints (location, combat state) are supplied by the caller via
// extraHints, since this package has no dependency on the game-state
// model; recentMessages supplies NPC carryover context.
func Plan(actionText string, recentMessages []ChatMessage, extraHints map[string]interface{}) []Query {
	var queries []Query

	lower := strings.ToLower(actionText)

	if npcs := extractNPCs(recentMessages); len(npcs) > 0 {
		extraHints = mergeHints(extraHints, map[string]interface{}{"npc": npcs[0]})
	}

	if spells := extractSpells(actionText, lower); len(spells) > 0 {
		queries = append(queries, Query{
			Text:         actionText,
			Kind:         KindSpellCast,
			ContextHints: mergeHints(extraHints, map[string]interface{}{"spell": spells[0]}),
			KBTypeFilter: []string{"spells"},
		})
	}

	if isCombatAction(actionText) {
		queries = append(queries, Query{
			Text:         actionText,
			Kind:         KindCombat,
			ContextHints: cloneHints(extraHints),
			KBTypeFilter: []string{"rules", "monsters"},
		})
		for _, creature := range extractCreatures(actionText) {
			queries = append(queries, Query{
				Text:         creature,
				Kind:         KindCombat,
				ContextHints: mergeHints(extraHints, map[string]interface{}{"creature": creature}),
				KBTypeFilter: []string{"monsters"},
			})
		}
	}

	if skills := extractSkills(actionText, lower); len(skills) > 0 {
		queries = append(queries, Query{
			Text:         actionText,
			Kind:         KindSkillCheck,
			ContextHints: mergeHints(extraHints, map[string]interface{}{"skill": skills[0]}),
			KBTypeFilter: []string{"mechanics"},
		})
	}

	if socialVerbPattern.MatchString(actionText) {
		queries = append(queries, Query{
			Text:         actionText,
			Kind:         KindSocial,
			ContextHints: cloneHints(extraHints),
		})
	}

	queries = append(queries, Query{
		Text:         actionText,
		Kind:         KindGeneral,
		ContextHints: cloneHints(extraHints),
	})

	dedupeQueries(&queries)
	sortByPriority(queries)
	return queries
}

func extractSpells(raw, lower string) []string {
	var matches []string
	for _, spell := range commonSpells {
		if strings.Contains(lower, spell) {
			matches = append(matches, titleCase(spell))
		}
	}
	for _, m := range spellVerbPattern.FindAllStringSubmatch(raw, -1) {
		candidate := strings.TrimSpace(m[1])
		if len(candidate) > 2 {
			matches = append(matches, candidate)
		}
	}
	return dedupePreserveOrder(matches, 3)
}

func isCombatAction(raw string) bool {
	return combatVerbPattern.MatchString(raw) || combatReversePattern.MatchString(raw) || spellTargetPattern.MatchString(raw)
}

func extractCreatures(raw string) []string {
	var matches []string
	for _, m := range combatVerbPattern.FindAllStringSubmatch(raw, -1) {
		if c := strings.TrimSpace(m[1]); len(c) > 2 {
			matches = append(matches, c)
		}
	}
	for _, m := range combatReversePattern.FindAllStringSubmatch(raw, -1) {
		if c := strings.TrimSpace(m[1]); len(c) > 2 {
			matches = append(matches, c)
		}
	}
	for _, m := range spellTargetPattern.FindAllStringSubmatch(raw, -1) {
		if c := strings.TrimSpace(m[1]); len(c) > 2 {
			matches = append(matches, c)
		}
	}
	return dedupePreserveOrder(matches, 2)
}

func extractSkills(raw, lower string) []string {
	var matches []string
	for _, skill := range d5eSkills {
		if strings.Contains(lower, skill) {
			matches = append(matches, titleCase(skill))
		}
	}
	for _, m := range skillCheckPattern.FindAllStringSubmatch(raw, -1) {
		candidate := strings.ToLower(strings.TrimSpace(m[1]))
		if isD5eSkill(candidate) {
			matches = append(matches, titleCase(candidate))
		}
	}
	return dedupePreserveOrder(matches, 2)
}

// titleCase upper-cases the first letter of each space-separated word,
// used only for the curated fixed lists (spell/skill names), which are
// plain ASCII — strings.Title is deprecated and golang.org/x/text's
// cases.Title is overkill for that.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func isD5eSkill(s string) bool {
	for _, skill := range d5eSkills {
		if skill == s {
			return true
		}
	}
	return false
}

// extractNPCs scans the last ten messages (assistant/user only) for
// "Name says/tells/..." patterns, returning unique names with the most
// recent mention first.
func extractNPCs(messages []ChatMessage) []string {
	start := 0
	if len(messages) > 10 {
		start = len(messages) - 10
	}
	recent := messages[start:]

	var matches []string
	for _, msg := range recent {
		if msg.Role != "assistant" && msg.Role != "user" {
			continue
		}
		for _, m := range npcPattern.FindAllStringSubmatch(msg.Content, -1) {
			name := strings.TrimSpace(m[1])
			if len(name) > 2 && !npcStopWords[strings.ToLower(name)] {
				matches = append(matches, name)
			}
		}
	}

	seen := make(map[string]bool)
	var out []string
	for i := len(matches) - 1; i >= 0; i-- {
		if seen[matches[i]] {
			continue
		}
		seen[matches[i]] = true
		out = append(out, matches[i])
		if len(out) == 3 {
			break
		}
	}
	return out
}

func dedupePreserveOrder(items []string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		key := strings.ToLower(it)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}

func dedupeQueries(queries *[]Query) {
	seen := make(map[string]bool)
	out := (*queries)[:0]
	for _, q := range *queries {
		key := string(q.Kind) + "\x00" + strings.ToLower(q.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	*queries = out
}

func sortByPriority(queries []Query) {
	for i := 1; i < len(queries); i++ {
		for j := i; j > 0 && kindPriority[queries[j].Kind] < kindPriority[queries[j-1].Kind]; j-- {
			queries[j], queries[j-1] = queries[j-1], queries[j]
		}
	}
}

func mergeHints(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	out := cloneHints(base)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func cloneHints(base map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	return out
}
