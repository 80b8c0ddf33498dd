package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ChatSessionRepository is the session store for the assistant: it owns
// the append-only conversation log and the per-session state row.
type ChatSessionRepository interface {
	CreateSession(ctx context.Context, userID int64) (*domain.ChatSession, error)
	GetSessionForUser(ctx context.Context, sessionID string, userID int64) (*domain.ChatSession, error)
	GetState(ctx context.Context, sessionID string) (*domain.ChatSessionState, error)
	UpdateState(ctx context.Context, state *domain.ChatSessionState) error
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error
	ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error)
}

type chatSessionRepository struct {
	pool *pgxpool.Pool
}

// NewChatSessionRepository builds repository.
func NewChatSessionRepository(pool *pgxpool.Pool) ChatSessionRepository {
	return &chatSessionRepository{pool: pool}
}

// CreateSession inserts a session together with its empty state row.
func (r *chatSessionRepository) CreateSession(ctx context.Context, userID int64) (*domain.ChatSession, error) {
	session := &domain.ChatSession{
		ID:     uuid.NewString(),
		UserID: userID,
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertSession = `
        INSERT INTO chat_sessions (id, user_id)
        VALUES ($1,$2)
        RETURNING created_at`
	if err := tx.QueryRow(ctx, insertSession, session.ID, session.UserID).Scan(&session.CreatedAt); err != nil {
		return nil, err
	}

	const insertState = `INSERT INTO chat_session_states (session_id) VALUES ($1)`
	if _, err := tx.Exec(ctx, insertState, session.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *chatSessionRepository) GetSessionForUser(ctx context.Context, sessionID string, userID int64) (*domain.ChatSession, error) {
	const query = `
        SELECT id, user_id, created_at
        FROM chat_sessions WHERE id=$1 AND user_id=$2`

	var session domain.ChatSession
	if err := r.pool.QueryRow(ctx, query, sessionID, userID).Scan(
		&session.ID,
		&session.UserID,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *chatSessionRepository) GetState(ctx context.Context, sessionID string) (*domain.ChatSessionState, error) {
	const query = `
        SELECT session_id, last_ticket_id, last_intent, pending_action, updated_at
        FROM chat_session_states WHERE session_id=$1`

	var state domain.ChatSessionState
	var rawAction []byte
	if err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&state.SessionID,
		&state.LastTicketID,
		&state.LastIntent,
		&rawAction,
		&state.UpdatedAt,
	); err != nil {
		return nil, err
	}

	action, err := domain.UnmarshalPendingAction(rawAction)
	if err != nil {
		return nil, err
	}
	state.PendingAction = action
	return &state, nil
}

// UpdateState writes the whole state row. Concurrent turns on the same
// session resolve as last-writer-wins.
func (r *chatSessionRepository) UpdateState(ctx context.Context, state *domain.ChatSessionState) error {
	rawAction, err := domain.MarshalPendingAction(state.PendingAction)
	if err != nil {
		return err
	}

	const query = `
        UPDATE chat_session_states
        SET last_ticket_id=$1, last_intent=$2, pending_action=$3, updated_at=NOW()
        WHERE session_id=$4`
	_, err = r.pool.Exec(ctx, query, state.LastTicketID, state.LastIntent, rawAction, state.SessionID)
	return err
}

func (r *chatSessionRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_messages (session_id, role, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.SessionID,
		msg.Role,
		msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt)
}

// ListRecentMessages returns the latest messages in chronological order.
func (r *chatSessionRepository) ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
        SELECT id, session_id, role, content, created_at
        FROM chat_messages WHERE session_id=$1 ORDER BY id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse to chronological
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}
