package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ChatMessageRequest is one inbound assistant turn.
type ChatMessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ChatReplyResponse carries the assistant reply.
type ChatReplyResponse struct {
	Reply string `json:"reply"`
}

// ChatSessionResponse returns a freshly created session.
type ChatSessionResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatHistoryEntry is one logged message.
type ChatHistoryEntry struct {
	Role      domain.ChatRole `json:"role"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromChatMessages maps the conversation log.
func FromChatMessages(messages []domain.ChatMessage) []ChatHistoryEntry {
	result := make([]ChatHistoryEntry, 0, len(messages))
	for _, msg := range messages {
		result = append(result, ChatHistoryEntry{
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	return result
}
