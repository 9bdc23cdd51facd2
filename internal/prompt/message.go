package prompt

import "strings"

// Message is one entry in the final ordered list handed to the AI
// client.
type Message struct {
	Role    string
	Content string
}

// ChatMessage is a stored conversation turn, as it would be loaded from
// a campaign's chat log. AIResponseJSON holds the structured tool call
// an assistant turn previously emitted, when present.
type ChatMessage struct {
	Role           string
	Content        string
	AIResponseJSON string
	IsDiceResult   bool
}

// convertMessages applies spec §4.7's message-conversion rules:
// assistant turns prefer their structured AIResponseJSON over plain
// content, operator-visible dice-error diagnostics are dropped, and
// empty-content messages are dropped.
func convertMessages(history []ChatMessage) []Message {
	out := make([]Message, 0, len(history))
	for _, msg := range history {
		if isOperatorDiceError(msg) {
			continue
		}

		content := msg.Content
		if msg.Role == "assistant" && msg.AIResponseJSON != "" {
			content = msg.AIResponseJSON
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		out = append(out, Message{Role: msg.Role, Content: content})
	}
	return out
}

// isOperatorDiceError matches spec §4.7's exclusion rule: a system
// message flagged as a dice result whose content is an operator-visible
// error, never meant for the AI's eyes.
func isOperatorDiceError(msg ChatMessage) bool {
	return msg.Role == "system" && msg.IsDiceResult && strings.HasPrefix(msg.Content, "(Error")
}
