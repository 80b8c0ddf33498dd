package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/intelligence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type fakeTicketRepo struct {
	mu        sync.Mutex
	nextID    int64
	tickets   map[int64]*domain.Ticket
	updateErr error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{nextID: 1, tickets: make(map[int64]*domain.Ticket)}
}

func (f *fakeTicketRepo) seed(ticket domain.Ticket) *domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == 0 {
		ticket.ID = f.nextID
	}
	if ticket.ID >= f.nextID {
		f.nextID = ticket.ID + 1
	}
	stored := ticket
	f.tickets[stored.ID] = &stored
	return &stored
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket.ID = f.nextID
	f.nextID++
	stored := *ticket
	f.tickets[stored.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *ticket
	f.tickets[stored.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket := *stored
	return &ticket, nil
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []domain.Ticket
	for _, stored := range f.tickets {
		if filter.RequesterID != nil && stored.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.AgentID != nil && (stored.AgentID == nil || *stored.AgentID != *filter.AgentID) {
			continue
		}
		if filter.DueBefore != nil && (stored.DueDate == nil || !stored.DueDate.Before(*filter.DueBefore)) {
			continue
		}
		excluded := false
		for _, status := range filter.NotStatuses {
			if stored.Status == status {
				excluded = true
			}
		}
		if excluded {
			continue
		}
		result = append(result, *stored)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (f *fakeTicketRepo) ListUnresolved(ctx context.Context, limit int) ([]domain.Ticket, error) {
	return f.ListWithFilter(ctx, repository.TicketFilter{
		NotStatuses: []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed},
		Limit:       limit,
	})
}

func (f *fakeTicketRepo) CountWithFilter(ctx context.Context, filter repository.TicketFilter) (int64, error) {
	tickets, err := f.ListWithFilter(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(tickets)), nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	nextID   int64
	comments []domain.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{nextID: 1}
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.ID = f.nextID
	f.nextID++
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Comment
	for _, comment := range f.comments {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	return result, nil
}

func (f *fakeCommentRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.comments)
}

type fakeFeedbackRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]*domain.Feedback
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{nextID: 1, entries: make(map[int64]*domain.Feedback)}
}

func (f *fakeFeedbackRepo) Create(_ context.Context, feedback *domain.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	feedback.ID = f.nextID
	f.nextID++
	stored := *feedback
	f.entries[stored.TicketID] = &stored
	return nil
}

func (f *fakeFeedbackRepo) GetByTicket(_ context.Context, ticketID int64) (*domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.entries[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	feedback := *stored
	return &feedback, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	nextMsg  int64
	sessions map[string]*domain.ChatSession
	states   map[string]*domain.ChatSessionState
	messages []domain.ChatMessage
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		nextMsg:  1,
		sessions: make(map[string]*domain.ChatSession),
		states:   make(map[string]*domain.ChatSessionState),
	}
}

func (f *fakeSessionRepo) seedSession(id string, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = &domain.ChatSession{ID: id, UserID: userID}
	f.states[id] = &domain.ChatSessionState{SessionID: id}
}

func (f *fakeSessionRepo) CreateSession(_ context.Context, userID int64) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "session-" + string(rune('a'+len(f.sessions)))
	f.sessions[id] = &domain.ChatSession{ID: id, UserID: userID}
	f.states[id] = &domain.ChatSessionState{SessionID: id}
	return &domain.ChatSession{ID: id, UserID: userID}, nil
}

func (f *fakeSessionRepo) GetSessionForUser(_ context.Context, sessionID string, userID int64) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

// GetState hands out a deep copy so callers cannot mutate stored state
// without going through UpdateState, mirroring the database round trip.
func (f *fakeSessionRepo) GetState(_ context.Context, sessionID string) (*domain.ChatSessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.states[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyState(stored)
}

func (f *fakeSessionRepo) UpdateState(_ context.Context, state *domain.ChatSessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.states[state.SessionID]; !ok {
		return pgx.ErrNoRows
	}
	copied, err := copyState(state)
	if err != nil {
		return err
	}
	f.states[state.SessionID] = copied
	return nil
}

func (f *fakeSessionRepo) AppendMessage(_ context.Context, msg *domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = f.nextMsg
	f.nextMsg++
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeSessionRepo) ListRecentMessages(_ context.Context, sessionID string, limit int) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.ChatMessage
	for _, msg := range f.messages {
		if msg.SessionID == sessionID {
			result = append(result, msg)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (f *fakeSessionRepo) storedState(sessionID string) *domain.ChatSessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := copyState(f.states[sessionID])
	if err != nil {
		panic(err)
	}
	return state
}

func (f *fakeSessionRepo) sessionMessages(sessionID string) []domain.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.ChatMessage
	for _, msg := range f.messages {
		if msg.SessionID == sessionID {
			result = append(result, msg)
		}
	}
	return result
}

func copyState(state *domain.ChatSessionState) (*domain.ChatSessionState, error) {
	copied := *state
	if state.LastTicketID != nil {
		id := *state.LastTicketID
		copied.LastTicketID = &id
	}
	if state.LastIntent != nil {
		intent := *state.LastIntent
		copied.LastIntent = &intent
	}
	if state.PendingAction != nil {
		raw, err := domain.MarshalPendingAction(state.PendingAction)
		if err != nil {
			return nil, err
		}
		action, err := domain.UnmarshalPendingAction(raw)
		if err != nil {
			return nil, err
		}
		copied.PendingAction = action
	}
	return &copied, nil
}

type fakeStatsProvider struct {
	snapshot domain.StatsSnapshot
	err      error
}

func (f *fakeStatsProvider) AggregateStats(context.Context) (domain.StatsSnapshot, error) {
	return f.snapshot, f.err
}

type fakeRanker struct {
	ranked []intelligence.RankedTicket
	err    error
}

func (f *fakeRanker) TopRisky(_ context.Context, n int) ([]intelligence.RankedTicket, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.ranked) > n {
		return f.ranked[:n], nil
	}
	return f.ranked, nil
}
