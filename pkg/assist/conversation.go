package assist

import (
	"time"
	"unicode/utf8"

	"github.com/gurkanbulca/barakaflow/pkg/llm"
)

const (
	// MaxConversationTokens is the estimated budget for one chat request.
	MaxConversationTokens = 8000
	// ReservedResponseTokens is kept free for the answer.
	ReservedResponseTokens = 500
)

// ChatTurn is a stored message of a conversation.
type ChatTurn struct {
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// EstimateTokens approximates tokens as one per four characters, rounded up.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// TruncateConversation keeps the newest turns that fit in maxTokens after
// reserving room for the system prompt, the context and the answer. It stops
// at the first turn that does not fit, so the kept turns are contiguous.
func TruncateConversation(systemPrompt, context string, history []ChatTurn, maxTokens int) []ChatTurn {
	available := maxTokens - EstimateTokens(systemPrompt) - EstimateTokens(context) - ReservedResponseTokens

	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		n := EstimateTokens(history[i].Content)
		if used+n > available {
			break
		}
		used += n
		start = i
	}
	return history[start:]
}
