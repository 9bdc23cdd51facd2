// Package prompt implements the Prompt Assembler (C7): it builds the
// final ordered message list handed to the AI client from the fixed
// seven-slot structure spec §4.7 describes, coordinating the query
// planner, retrieval orchestrator, and context cache.
package prompt

import (
	"context"
	"fmt"
	"strings"

	promptcache "github.com/ai-gamemaster/knowledge-core/internal/context"
	"github.com/ai-gamemaster/knowledge-core/internal/knowledge"
	"github.com/ai-gamemaster/knowledge-core/internal/logging"
	"github.com/ai-gamemaster/knowledge-core/internal/planner"
)

// defaultBudget is the overall token budget (spec §4.7 default 128000).
const defaultBudget = 128000

// defaultRecentHistoryCount is slot 6's default message count.
const defaultRecentHistoryCount = 4

// defaultFallbackMessageLimit bounds slot 2 when no real tokenizer is
// available, expressing the budget as a message count instead of a
// token count (spec §4.7).
const defaultFallbackMessageLimit = 40

// systemPromptTemplate is the fixed slot-1 content.
const systemPromptTemplate = `You are the Game Master for a tabletop role-playing campaign. ` +
	`Narrate outcomes fairly, consult the rules context provided below when it applies, ` +
	`and never invent mechanical results the dice should determine.`

// Orchestrator is the subset of the retrieval orchestrator the
// assembler depends on.
type Orchestrator interface {
	Execute(ctx context.Context, queries []planner.Query, originalAction string) (knowledge.Results, error)
}

// Options tunes the assembler's budget and slot sizes.
type Options struct {
	Budget               int
	RecentHistoryCount   int
	FallbackMessageLimit int
}

// DefaultOptions matches spec §4.7's defaults.
func DefaultOptions() Options {
	return Options{
		Budget:               defaultBudget,
		RecentHistoryCount:   defaultRecentHistoryCount,
		FallbackMessageLimit: defaultFallbackMessageLimit,
	}
}

// Assembler is the Prompt Assembler (C7).
type Assembler struct {
	orchestrator Orchestrator
	cache        *promptcache.Cache
	tokenizer    Tokenizer
	opts         Options
}

// New wires an Assembler over a retrieval orchestrator and the
// session's context cache.
func New(orchestrator Orchestrator, cache *promptcache.Cache, opts Options) *Assembler {
	if opts.Budget <= 0 {
		opts.Budget = defaultBudget
	}
	if opts.RecentHistoryCount <= 0 {
		opts.RecentHistoryCount = defaultRecentHistoryCount
	}
	if opts.FallbackMessageLimit <= 0 {
		opts.FallbackMessageLimit = defaultFallbackMessageLimit
	}
	return &Assembler{orchestrator: orchestrator, cache: cache, tokenizer: SharedTokenizer(), opts: opts}
}

// StaticContext is slot 3's content.
type StaticContext struct {
	CampaignGoal string
	WorldLore    []string
	ActiveQuests []string
	KnownNPCs    []string
	EventSummary string
}

// DynamicContext is slot 4's content.
type DynamicContext struct {
	CurrentLocation string
	Party           []Combatant
	Combat          *CombatState
}

// Input bundles everything one Assemble call needs.
type Input struct {
	Static            StaticContext
	Dynamic           DynamicContext
	History           []ChatMessage
	PlayerAction      *string
	SystemInstruction *string
	Party             PartyLookup
}

// Assemble builds the final message list per spec §4.7's seven slots,
// consulting the context cache (C8) to decide whether new retrieval is
// needed.
func (a *Assembler) Assemble(ctx context.Context, in Input) ([]Message, error) {
	log := logging.Get(logging.CategoryPrompt)

	ragBlock, err := a.resolveRAGBlock(ctx, in)
	if err != nil {
		log.Warn("prompt: retrieval failed, continuing without RAG context: %v", err)
		ragBlock = ""
	}

	staticBlock := formatStaticContext(in.Static)
	dynamicBlock := formatDynamicContext(in.Dynamic, in.Party)

	converted := convertMessages(in.History)
	recentN := a.opts.RecentHistoryCount
	if recentN > len(converted) {
		recentN = len(converted)
	}
	older := converted[:len(converted)-recentN]
	recent := converted[len(converted)-recentN:]

	fixedSlots := []Message{
		{Role: "system", Content: systemPromptTemplate},
	}
	if staticBlock != "" {
		fixedSlots = append(fixedSlots, Message{Role: "system", Content: staticBlock})
	}
	if dynamicBlock != "" {
		fixedSlots = append(fixedSlots, Message{Role: "system", Content: dynamicBlock})
	}
	if ragBlock != "" {
		fixedSlots = append(fixedSlots, Message{Role: "system", Content: ragBlock})
	}
	fixedSlots = append(fixedSlots, recent...)
	if in.SystemInstruction != nil && *in.SystemInstruction != "" {
		fixedSlots = append(fixedSlots, Message{Role: "system", Content: *in.SystemInstruction})
	}

	fixedCost, tokenizerAvailable := a.totalTokens(fixedSlots)

	var trimmedOlder []Message
	if tokenizerAvailable {
		budget := a.opts.Budget - fixedCost
		trimmedOlder = trimOldestFirst(older, budget, a.tokenizer)
	} else {
		trimmedOlder = softTrimByMessageCount(older, a.opts.FallbackMessageLimit)
	}

	out := make([]Message, 0, len(fixedSlots)+len(trimmedOlder)+1)
	out = append(out, fixedSlots[0])
	out = append(out, trimmedOlder...)
	out = append(out, fixedSlots[1:]...)
	return out, nil
}

// resolveRAGBlock implements the context-cache semantics of spec §4.8:
// a non-nil player action clears the cache and runs fresh retrieval; a
// nil action reuses whatever was cached, without re-querying.
func (a *Assembler) resolveRAGBlock(ctx context.Context, in Input) (string, error) {
	if in.PlayerAction == nil {
		if cached, ok := a.cache.Get(); ok {
			return cached, nil
		}
		return "", nil
	}

	a.cache.Clear()

	var recent []planner.ChatMessage
	for _, m := range in.History {
		recent = append(recent, planner.ChatMessage{Role: m.Role, Content: m.Content})
	}

	hints := map[string]interface{}{}
	if in.Dynamic.CurrentLocation != "" {
		hints["location"] = in.Dynamic.CurrentLocation
	}
	queries := planner.Plan(*in.PlayerAction, recent, hints)

	results, err := a.orchestrator.Execute(ctx, queries, *in.PlayerAction)
	if err != nil {
		return "", err
	}

	formatted := FormatRAGBlock(results)
	a.cache.Set(formatted)
	return formatted, nil
}

func formatStaticContext(s StaticContext) string {
	var parts []string
	if s.CampaignGoal != "" {
		parts = append(parts, "Campaign goal: "+s.CampaignGoal)
	}
	if len(s.WorldLore) > 0 {
		parts = append(parts, "World lore: "+strings.Join(s.WorldLore, "; "))
	}
	if len(s.ActiveQuests) > 0 {
		parts = append(parts, "Active quests: "+strings.Join(s.ActiveQuests, "; "))
	}
	if len(s.KnownNPCs) > 0 {
		parts = append(parts, "Known NPCs: "+strings.Join(s.KnownNPCs, ", "))
	}
	if s.EventSummary != "" {
		parts = append(parts, "Recent events: "+s.EventSummary)
	}
	return strings.Join(parts, "\n")
}

func formatDynamicContext(d DynamicContext, party PartyLookup) string {
	var parts []string
	if d.CurrentLocation != "" {
		parts = append(parts, "Current location: "+d.CurrentLocation)
	}
	if len(d.Party) > 0 {
		var roster []string
		for _, c := range d.Party {
			line := fmt.Sprintf("%s (%d/%d HP)", c.Name, c.HP, c.MaxHP)
			if len(c.Conditions) > 0 {
				line += " [" + strings.Join(c.Conditions, ", ") + "]"
			}
			roster = append(roster, line)
		}
		parts = append(parts, "Party: "+strings.Join(roster, "; "))
	}
	if d.Combat != nil {
		if combatBlock := FormatCombat(*d.Combat, party); combatBlock != "" {
			parts = append(parts, combatBlock)
		}
	}
	return strings.Join(parts, "\n")
}

// totalTokens sums a message list's token cost, returning
// available=false the moment the tokenizer itself is unavailable.
func (a *Assembler) totalTokens(messages []Message) (int, bool) {
	total := 0
	for _, m := range messages {
		n, ok := messageTokens(a.tokenizer, m.Content)
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

// trimOldestFirst keeps the newest messages that fit within budget,
// dropping from the front (oldest) without ever splitting a message.
func trimOldestFirst(messages []Message, budget int, tok Tokenizer) []Message {
	if budget <= 0 {
		return nil
	}
	costs := make([]int, len(messages))
	total := 0
	for i, m := range messages {
		n, _ := messageTokens(tok, m.Content)
		costs[i] = n
		total += n
	}

	start := 0
	for total > budget && start < len(messages) {
		total -= costs[start]
		start++
	}
	return messages[start:]
}

// softTrimByMessageCount is the tokenizer-unavailable fallback: treat
// budget as a message count instead of a token count (spec §4.7).
func softTrimByMessageCount(messages []Message, maxMessages int) []Message {
	if maxMessages <= 0 || len(messages) <= maxMessages {
		return messages
	}
	return messages[len(messages)-maxMessages:]
}
