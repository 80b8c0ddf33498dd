package domain

import "time"

// ChatRole identifies who authored a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatSession identifies one ongoing conversation with the assistant.
// Owned exclusively by the user who created it; never deleted by this
// subsystem.
type ChatSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
}

// ChatMessage is an immutable, append-only log entry. Each turn produces
// one user message and one assistant message, in that order.
type ChatMessage struct {
	ID        int64
	SessionID string
	Role      ChatRole
	Content   string
	CreatedAt time.Time
}

// ChatSessionState is the mutable 1:1 companion of a session. At most one
// pending action may exist per session at any time.
type ChatSessionState struct {
	SessionID     string
	LastTicketID  *int64
	LastIntent    *string
	PendingAction *PendingAction
	UpdatedAt     time.Time
}
