package prompt

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ai-gamemaster/knowledge-core/internal/logging"
)

// perMessageOverhead is the fixed per-message token cost added on top of
// a message's rendered content, per spec §4.7 ("each message adds a
// small fixed overhead, default 4").
const perMessageOverhead = 4

// Tokenizer counts tokens in a rendered message list the same way the
// downstream AI client's context window does.
type Tokenizer interface {
	// Count returns the token count for s, or 0 with available=false
	// if no real tokenizer could be loaded (spec §4.7's soft-limit
	// fallback).
	Count(s string) (count int, available bool)
}

type cl100kTokenizer struct {
	enc *tiktoken.Tiktoken
}

// fallbackTokenizer is used when the cl100k encoding ranks can't be
// loaded (e.g. no network access to fetch them). Unlike the teacher's
// EstimateTokens chars/4 heuristic it gives no estimate: Count returns
// 0 with available=false, so callers fall back to a message-count
// budget.
type fallbackTokenizer struct{}

func (fallbackTokenizer) Count(s string) (int, bool) {
	return 0, false
}

var (
	sharedTokenizer     Tokenizer
	sharedTokenizerOnce sync.Once
)

// SharedTokenizer lazily builds one process-wide tokenizer instance —
// loading the cl100k encoding's merge ranks is the expensive part, and
// the encoding itself is safe for concurrent reads across goroutines.
func SharedTokenizer() Tokenizer {
	sharedTokenizerOnce.Do(func() {
		log := logging.Get(logging.CategoryPrompt)
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn("prompt: cl100k tokenizer unavailable, falling back to message-count budget: %v", err)
			sharedTokenizer = fallbackTokenizer{}
			return
		}
		sharedTokenizer = &cl100kTokenizer{enc: enc}
	})
	return sharedTokenizer
}

func (t *cl100kTokenizer) Count(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	return len(t.enc.Encode(s, nil, nil)), true
}

// messageTokens returns a message's token cost including its per-message
// overhead.
func messageTokens(tok Tokenizer, content string) (int, bool) {
	n, ok := tok.Count(content)
	if !ok {
		return 0, false
	}
	return n + perMessageOverhead, true
}
