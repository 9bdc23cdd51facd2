package prompt

import (
	"fmt"
	"strings"

	"github.com/ai-gamemaster/knowledge-core/internal/logging"
)

// Combatant is one participant in an active encounter.
type Combatant struct {
	Name       string
	IsPC       bool
	HP         int
	MaxHP      int
	Conditions []string
}

// Defeated reports whether this combatant is down, per spec §4.7: HP
// at or below zero, or any condition case-insensitively equal to
// "defeated".
func (c Combatant) Defeated() bool {
	if c.HP <= 0 {
		return true
	}
	for _, cond := range c.Conditions {
		if strings.EqualFold(cond, "defeated") {
			return true
		}
	}
	return false
}

// CombatState is the active encounter snapshot, when combat is
// underway.
type CombatState struct {
	Active           bool
	Round            int
	CurrentTurnIndex int
	Combatants       []Combatant
}

// PartyLookup resolves a PC's live HP/conditions from the party
// repository, since a PC combatant record in combat state may be stale
// relative to the source of truth (spec §4.7: "HP/conditions ... from
// the party repository (PCs)").
type PartyLookup interface {
	LookupPC(name string) (hp, maxHP int, conditions []string, ok bool)
}

// FormatCombat renders the combat block: round counter, turn order with
// an active-turn marker, and per-combatant HP/conditions/defeated tag.
func FormatCombat(state CombatState, party PartyLookup) string {
	if !state.Active || len(state.Combatants) == 0 {
		return ""
	}

	index := state.CurrentTurnIndex
	if index < 0 || index >= len(state.Combatants) {
		logging.Get(logging.CategoryPrompt).Warn(
			"combat: current turn index %d out of range for %d combatants, resetting to 0",
			index, len(state.Combatants),
		)
		index = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Combat — Round %d\n", state.Round)
	for i, c := range state.Combatants {
		hp, maxHP, conditions := c.HP, c.MaxHP, c.Conditions
		if c.IsPC && party != nil {
			if liveHP, liveMax, liveConditions, ok := party.LookupPC(c.Name); ok {
				hp, maxHP, conditions = liveHP, liveMax, liveConditions
			}
		}

		marker := "  "
		if i == index {
			marker = "->"
		}

		combatant := Combatant{Name: c.Name, IsPC: c.IsPC, HP: hp, MaxHP: maxHP, Conditions: conditions}
		line := fmt.Sprintf("%s %s: %d/%d HP", marker, c.Name, hp, maxHP)
		if len(conditions) > 0 {
			line += " [" + strings.Join(conditions, ", ") + "]"
		}
		if combatant.Defeated() {
			line += " [Defeated]"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
