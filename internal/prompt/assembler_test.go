package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	promptcache "github.com/ai-gamemaster/knowledge-core/internal/context"
	"github.com/ai-gamemaster/knowledge-core/internal/knowledge"
	"github.com/ai-gamemaster/knowledge-core/internal/planner"
)

type fakeOrchestrator struct {
	results knowledge.Results
	err     error
	calls   int
}

func (f *fakeOrchestrator) Execute(ctx context.Context, queries []planner.Query, originalAction string) (knowledge.Results, error) {
	f.calls++
	return f.results, f.err
}

func historyOf(n int) []ChatMessage {
	var out []ChatMessage
	for i := 0; i < n; i++ {
		out = append(out, ChatMessage{Role: "user", Content: strings.Repeat("word ", 20)})
	}
	return out
}

func TestAssembleIncludesSystemPromptFirst(t *testing.T) {
	orch := &fakeOrchestrator{}
	a := New(orch, promptcache.New(), DefaultOptions())

	messages, err := a.Assemble(context.Background(), Input{})
	require.NoError(t, err)
	require.NotEmpty(t, messages)
	require.Equal(t, "system", messages[0].Role)
	require.Contains(t, messages[0].Content, "Game Master")
}

func TestAssembleRunsRetrievalOnNonNilAction(t *testing.T) {
	orch := &fakeOrchestrator{results: knowledge.Results{Items: []knowledge.Item{
		{Content: "Goblins are small, cunning humanoids.", Source: "monsters", RelevanceScore: 5},
	}}}
	cache := promptcache.New()
	a := New(orch, cache, DefaultOptions())

	action := "I attack the goblin"
	messages, err := a.Assemble(context.Background(), Input{PlayerAction: &action})
	require.NoError(t, err)
	require.Equal(t, 1, orch.calls)

	found := false
	for _, m := range messages {
		if strings.Contains(m.Content, "Goblins are small") {
			found = true
		}
	}
	require.True(t, found)

	cached, ok := cache.Get()
	require.True(t, ok)
	require.Contains(t, cached, "Goblins are small")
}

func TestAssembleReusesCacheOnNilAction(t *testing.T) {
	orch := &fakeOrchestrator{}
	cache := promptcache.New()
	cache.Set("**Relevant Information:**\n\n**Monsters:**\n- Cached goblin facts.")
	a := New(orch, cache, DefaultOptions())

	messages, err := a.Assemble(context.Background(), Input{PlayerAction: nil})
	require.NoError(t, err)
	require.Equal(t, 0, orch.calls)

	found := false
	for _, m := range messages {
		if strings.Contains(m.Content, "Cached goblin facts") {
			found = true
		}
	}
	require.True(t, found)
}

func TestAssembleSplitsRecentFromOlderHistory(t *testing.T) {
	orch := &fakeOrchestrator{}
	a := New(orch, promptcache.New(), Options{Budget: defaultBudget, RecentHistoryCount: 2})

	history := []ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "second"},
		{Role: "user", Content: "third"},
		{Role: "assistant", Content: "fourth"},
	}
	messages, err := a.Assemble(context.Background(), Input{History: history})
	require.NoError(t, err)

	var contents []string
	for _, m := range messages {
		contents = append(contents, m.Content)
	}
	joined := strings.Join(contents, "|")
	require.True(t, strings.Index(joined, "third") < strings.Index(joined, "fourth"))
}

func TestAssembleTrimsOlderHistoryToFitBudget(t *testing.T) {
	orch := &fakeOrchestrator{}
	a := New(orch, promptcache.New(), Options{Budget: 50, RecentHistoryCount: 1, FallbackMessageLimit: 3})

	messages, err := a.Assemble(context.Background(), Input{History: historyOf(50)})
	require.NoError(t, err)
	require.Less(t, len(messages), 10)
}

func TestAssembleContinuesWhenRetrievalFails(t *testing.T) {
	orch := &fakeOrchestrator{err: &fakeRetrievalError{}}
	a := New(orch, promptcache.New(), DefaultOptions())

	action := "I cast fireball"
	messages, err := a.Assemble(context.Background(), Input{PlayerAction: &action})
	require.NoError(t, err)
	require.NotEmpty(t, messages)
}

type fakeRetrievalError struct{}

func (e *fakeRetrievalError) Error() string { return "boom" }

func TestConvertMessagesPrefersAIResponseJSON(t *testing.T) {
	history := []ChatMessage{
		{Role: "assistant", Content: "plain text", AIResponseJSON: `{"narration":"..."}`},
	}
	out := convertMessages(history)
	require.Len(t, out, 1)
	require.Equal(t, `{"narration":"..."}`, out[0].Content)
}

func TestConvertMessagesDropsOperatorDiceErrors(t *testing.T) {
	history := []ChatMessage{
		{Role: "system", Content: "(Error rolling dice)", IsDiceResult: true},
		{Role: "user", Content: "I roll a d20"},
	}
	out := convertMessages(history)
	require.Len(t, out, 1)
	require.Equal(t, "I roll a d20", out[0].Content)
}

func TestConvertMessagesDropsEmptyContent(t *testing.T) {
	history := []ChatMessage{{Role: "user", Content: ""}, {Role: "user", Content: "hello"}}
	out := convertMessages(history)
	require.Len(t, out, 1)
}
