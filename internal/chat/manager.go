package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/intelligence"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// ErrSessionNotFound signals an unknown session or one owned by another
// user. It is the only hard error the manager distinguishes; everything
// recoverable becomes a guiding chatbot reply instead.
var ErrSessionNotFound = errors.New("chat session not found")

const (
	replyInternalError    = "Internal chatbot error."
	replySpecifyTicket    = "Please specify the ticket number."
	replyUnknown          = "I am not sure how to help with that yet. Try asking about ticket status or risk."
	replyNothingToConfirm = "There is no pending action to confirm."
	replyNothingToCancel  = "There is no pending action to cancel."
	replyCancelled        = "Okay, I cancelled that action. Nothing was changed."
	replyAgentsOnly       = "Only agents can do that."
	replyOwnResolvedOnly  = "You can only do that on your own resolved tickets."
	replyMissingComment   = "What should the comment say? Try: comment: <your text>."
	replyMissingRating    = "Please provide a rating from 1 to 5."
	replyMissingStatus    = "Which status should I set? Options: New, In Progress, Pending, Resolved, Reopened."
	replyCreateHint       = "I cannot create tickets from chat yet. Please use the new ticket form with a title, description, and category."
)

// StatsProvider supplies the statistics snapshot consumed by risk
// scoring. Snapshots may be stale; no transactional consistency needed.
type StatsProvider interface {
	AggregateStats(ctx context.Context) (domain.StatsSnapshot, error)
}

// TopRiskyProvider ranks open tickets by risk.
type TopRiskyProvider interface {
	TopRisky(ctx context.Context, n int) ([]intelligence.RankedTicket, error)
}

// Manager orchestrates one conversational turn: classify, consult
// memory, enforce the confirm-before-mutate protocol, and log exactly
// one user and one assistant message per turn.
type Manager struct {
	sessions      repository.ChatSessionRepository
	tickets       repository.TicketRepository
	stats         StatsProvider
	ranker        TopRiskyProvider
	executor      *Executor
	locks         *sessionLocks
	logger        *zap.Logger
	metrics       *observability.Metrics
	topRiskyLimit int
}

// ManagerDependencies bundles collaborators for the manager.
type ManagerDependencies struct {
	Sessions      repository.ChatSessionRepository
	Tickets       repository.TicketRepository
	Stats         StatsProvider
	Ranker        TopRiskyProvider
	Executor      *Executor
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	TopRiskyLimit int
}

// NewManager constructs the dialogue manager.
func NewManager(deps ManagerDependencies) *Manager {
	limit := deps.TopRiskyLimit
	if limit <= 0 {
		limit = 5
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:      deps.Sessions,
		tickets:       deps.Tickets,
		stats:         deps.Stats,
		ranker:        deps.Ranker,
		executor:      deps.Executor,
		locks:         newSessionLocks(),
		logger:        logger,
		metrics:       deps.Metrics,
		topRiskyLimit: limit,
	}
}

// StartSession creates a session with empty state for the user.
func (m *Manager) StartSession(ctx context.Context, userID int64) (*domain.ChatSession, error) {
	return m.sessions.CreateSession(ctx, userID)
}

// History returns the recent conversation log for an owned session.
func (m *Manager) History(ctx context.Context, user *domain.User, sessionID string, limit int) ([]domain.ChatMessage, error) {
	if _, err := m.sessions.GetSessionForUser(ctx, sessionID, user.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return m.sessions.ListRecentMessages(ctx, sessionID, limit)
}

// HandleTurn processes one inbound message and returns the reply.
// Session ownership is verified before anything is logged; afterwards
// the user message is appended, the intent routed, state saved when it
// changed, and the assistant reply appended. Collaborator failures
// abort the turn without rolling back messages already appended.
func (m *Manager) HandleTurn(ctx context.Context, user *domain.User, sessionID, message string) (string, error) {
	session, err := m.sessions.GetSessionForUser(ctx, sessionID, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		return "", err
	}

	unlock := m.locks.Lock(session.ID)
	defer unlock()

	state, err := m.sessions.GetState(ctx, session.ID)
	if err != nil {
		return "", err
	}

	if err := m.sessions.AppendMessage(ctx, &domain.ChatMessage{
		SessionID: session.ID,
		Role:      domain.ChatRoleUser,
		Content:   message,
	}); err != nil {
		return "", err
	}

	cls := Classify(message)

	reply, dirty, err := m.route(ctx, user, state, cls)
	if err != nil {
		m.logger.Error("chat turn failed",
			zap.String("session_id", session.ID),
			zap.String("intent", string(cls.Intent)),
			zap.Error(err))
		m.appendAssistant(ctx, session.ID, replyInternalError)
		return "", err
	}

	if dirty {
		if uerr := m.sessions.UpdateState(ctx, state); uerr != nil {
			m.appendAssistant(ctx, session.ID, replyInternalError)
			return "", uerr
		}
	}

	if err := m.sessions.AppendMessage(ctx, &domain.ChatMessage{
		SessionID: session.ID,
		Role:      domain.ChatRoleAssistant,
		Content:   reply,
	}); err != nil {
		return "", err
	}

	m.metrics.RecordChatTurn(string(cls.Intent))
	return reply, nil
}

// route dispatches on the session state and classified intent, mutating
// state in place. dirty reports whether state must be persisted; err is
// reserved for collaborator failures that abort the turn.
func (m *Manager) route(ctx context.Context, user *domain.User, state *domain.ChatSessionState, cls Classification) (reply string, dirty bool, err error) {
	if state.PendingAction != nil {
		return m.routePending(ctx, user, state, cls)
	}

	switch cls.Intent {
	case IntentConfirmAction:
		return replyNothingToConfirm, false, nil
	case IntentCancelAction:
		return replyNothingToCancel, false, nil

	case IntentAddComment, IntentCloseTicket, IntentReopenTicket,
		IntentAssignToMe, IntentSetStatus, IntentSubmitFeedback:
		return m.proposeAction(ctx, user, state, cls)
	case IntentCreateTicket:
		m.remember(state, cls.Intent, nil)
		return replyCreateHint, true, nil

	case IntentTicketStatus:
		return m.ticketStatus(ctx, state, cls)
	case IntentTicketRisk:
		return m.ticketRisk(ctx, state, cls)
	case IntentMyTickets:
		return m.myTickets(ctx, user, state, cls)
	case IntentOverdueList:
		return m.overdueList(ctx, user, state, cls)
	case IntentTopRisky:
		return m.topRisky(ctx, user, state, cls)
	case IntentAgentPriority:
		return m.agentPriority(ctx, user, state, cls)

	case IntentGreeting:
		m.remember(state, cls.Intent, nil)
		return fmt.Sprintf("Hello %s. How can I assist you today?", user.Name), true, nil
	default:
		return replyUnknown, false, nil
	}
}

// routePending resolves the AWAITING_CONFIRMATION state: confirm
// executes, cancel discards, anything else re-prompts and the pending
// action is neither executed nor dropped.
func (m *Manager) routePending(ctx context.Context, user *domain.User, state *domain.ChatSessionState, cls Classification) (string, bool, error) {
	action := state.PendingAction

	switch cls.Intent {
	case IntentConfirmAction:
		summary, err := m.executor.Execute(ctx, action, user)
		if err != nil {
			// pending action stays set so the user may retry or cancel
			return "", false, err
		}
		state.PendingAction = nil
		m.remember(state, cls.Intent, nil)
		return summary, true, nil

	case IntentCancelAction:
		state.PendingAction = nil
		m.remember(state, cls.Intent, nil)
		return replyCancelled, true, nil

	default:
		return fmt.Sprintf("You have a pending action: %s. Please reply 'yes' to confirm or 'no' to cancel.",
			action.Describe()), false, nil
	}
}

// proposeAction gates, resolves entities, and stores a pending action.
func (m *Manager) proposeAction(ctx context.Context, user *domain.User, state *domain.ChatSessionState, cls Classification) (string, bool, error) {
	// role gates come before anything is fetched or stored
	switch cls.Intent {
	case IntentCloseTicket, IntentAssignToMe, IntentSetStatus:
		if !user.Role.IsAgent() {
			return replyAgentsOnly, false, nil
		}
	}

	ticket, reply, err := m.resolveTicket(ctx, state, cls)
	if err != nil {
		return "", false, err
	}
	if ticket == nil {
		return reply, false, nil
	}

	var action *domain.PendingAction
	switch cls.Intent {
	case IntentAddComment:
		if !user.Role.IsAgent() && ticket.RequesterID != user.ID {
			return "You can only comment on your own tickets.", false, nil
		}
		if cls.Entities.CommentBody == "" {
			return replyMissingComment, false, nil
		}
		action = &domain.PendingAction{
			Kind:       domain.ActionAddComment,
			AddComment: &domain.AddCommentAction{TicketID: ticket.ID, Content: cls.Entities.CommentBody},
		}

	case IntentCloseTicket:
		action = &domain.PendingAction{
			Kind:        domain.ActionCloseTicket,
			CloseTicket: &domain.CloseTicketAction{TicketID: ticket.ID, Reason: cls.Entities.CommentBody},
		}

	case IntentReopenTicket:
		if ticket.RequesterID != user.ID || !ticket.IsResolved() {
			return replyOwnResolvedOnly, false, nil
		}
		action = &domain.PendingAction{
			Kind:         domain.ActionReopenTicket,
			ReopenTicket: &domain.ReopenTicketAction{TicketID: ticket.ID, Reason: cls.Entities.CommentBody},
		}

	case IntentAssignToMe:
		action = &domain.PendingAction{
			Kind:         domain.ActionAssignTicket,
			AssignTicket: &domain.AssignTicketAction{TicketID: ticket.ID},
		}

	case IntentSetStatus:
		if cls.Entities.Status == nil {
			return replyMissingStatus, false, nil
		}
		action = &domain.PendingAction{
			Kind:      domain.ActionSetStatus,
			SetStatus: &domain.SetStatusAction{TicketID: ticket.ID, Status: *cls.Entities.Status},
		}

	case IntentSubmitFeedback:
		if ticket.RequesterID != user.ID || !ticket.IsResolved() {
			return replyOwnResolvedOnly, false, nil
		}
		if cls.Entities.Rating == nil {
			return replyMissingRating, false, nil
		}
		action = &domain.PendingAction{
			Kind: domain.ActionSubmitFeedback,
			SubmitFeedback: &domain.SubmitFeedbackAction{
				TicketID: ticket.ID,
				Rating:   *cls.Entities.Rating,
				Comment:  cls.Entities.CommentBody,
			},
		}

	default:
		return replyUnknown, false, nil
	}

	state.PendingAction = action
	m.remember(state, cls.Intent, &ticket.ID)
	return fmt.Sprintf("You want me to %s. Should I proceed? (yes/no)", action.Describe()), true, nil
}

func (m *Manager) ticketStatus(ctx context.Context, state *domain.ChatSessionState, cls Classification) (string, bool, error) {
	ticket, reply, err := m.resolveTicket(ctx, state, cls)
	if err != nil || ticket == nil {
		return reply, false, err
	}
	m.remember(state, cls.Intent, &ticket.ID)
	return fmt.Sprintf("Ticket %d is currently '%s' with priority '%s'.", ticket.ID, ticket.Status, ticket.Priority), true, nil
}

func (m *Manager) ticketRisk(ctx context.Context, state *domain.ChatSessionState, cls Classification) (string, bool, error) {
	ticket, reply, err := m.resolveTicket(ctx, state, cls)
	if err != nil || ticket == nil {
		return reply, false, err
	}

	stats, err := m.stats.AggregateStats(ctx)
	if err != nil {
		return "", false, err
	}

	assessment := intelligence.Score(ticket, stats, time.Now())
	band := strings.ToLower(string(intelligence.PredictSLABreach(assessment.Score)))

	m.remember(state, cls.Intent, &ticket.ID)
	if len(assessment.Reasoning) == 0 {
		return fmt.Sprintf("Ticket %d is considered %s risk (%d/100). Nothing stands out.", ticket.ID, band, assessment.Score), true, nil
	}
	return fmt.Sprintf("Ticket %d is considered %s risk (%d/100). Reasons: %s.",
		ticket.ID, band, assessment.Score, strings.Join(assessment.Reasoning, "; ")), true, nil
}

func (m *Manager) myTickets(ctx context.Context, user *domain.User, state *domain.ChatSessionState, cls Classification) (string, bool, error) {
	tickets, err := m.tickets.ListWithFilter(ctx, repository.TicketFilter{
		RequesterID: &user.ID,
		Limit:       5,
	})
	if err != nil {
		return "", false, err
	}
	if len(tickets) == 0 {
		m.remember(state, cls.Intent, nil)
		return "You have no tickets yet.", true, nil
	}

	lines := make([]string, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		lines = append(lines, fmt.Sprintf("#%d '%s' - %s (%s)", t.ID, t.Title, t.Status, t.Priority))
	}
	m.remember(state, cls.Intent, nil)
	return fmt.Sprintf("Your most recent tickets:\n%s", strings.Join(lines, "\n")), true, nil
}

func (m *Manager) overdueList(ctx context.Context, user *domain.User, state *domain.ChatSessionState, cls Classification) (string, bool, error) {
	if !user.Role.IsAgent() {
		return replyAgentsOnly, false, nil
	}

	now := time.Now()
	tickets, err := m.tickets.ListWithFilter(ctx, repository.TicketFilter{
		DueBefore:   &now,
		NotStatuses: []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed},
		Limit:       10,
	})
	if err != nil {
		return "", false, err
	}
	if len(tickets) == 0 {
		m.remember(state, cls.Intent, nil)
		return "No tickets are overdue right now.", true, nil
	}

	lines := make([]string, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		due := "no due date"
		if t.DueDate != nil {
			due = "due " + t.DueDate.Format("Jan 2 15:04")
		}
		lines = append(lines, fmt.Sprintf("#%d '%s' - %s, %s", t.ID, t.Title, t.Status, due))
	}
	m.remember(state, cls.Intent, nil)
	return fmt.Sprintf("%d overdue tickets:\n%s", len(tickets), strings.Join(lines, "\n")), true, nil
}

func (m *Manager) topRisky(ctx context.Context, user *domain.User, state *domain.ChatSessionState, cls Classification) (string, bool, error) {
	if !user.Role.IsAgent() {
		return replyAgentsOnly, false, nil
	}

	ranked, err := m.ranker.TopRisky(ctx, m.topRiskyLimit)
	if err != nil {
		return "", false, err
	}
	if len(ranked) == 0 {
		m.remember(state, cls.Intent, nil)
		return "No open tickets to rank.", true, nil
	}

	lines := make([]string, 0, len(ranked))
	for _, entry := range ranked {
		lines = append(lines, fmt.Sprintf("#%d '%s' - %d/100 (%s)",
			entry.ID, entry.Title, entry.RiskScore, strings.Join(entry.Reasons, "; ")))
	}
	m.remember(state, cls.Intent, nil)
	return fmt.Sprintf("Top risky tickets:\n%s", strings.Join(lines, "\n")), true, nil
}

func (m *Manager) agentPriority(ctx context.Context, user *domain.User, state *domain.ChatSessionState, cls Classification) (string, bool, error) {
	if !user.Role.IsAgent() {
		return replyAgentsOnly, false, nil
	}

	count, err := m.tickets.CountWithFilter(ctx, repository.TicketFilter{
		AgentID:     &user.ID,
		NotStatuses: []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed},
	})
	if err != nil {
		return "", false, err
	}

	m.remember(state, cls.Intent, nil)
	if count == 0 {
		return "You have no active tickets assigned.", true, nil
	}
	return fmt.Sprintf("You have %d active tickets. Focus on high priority and overdue ones first.", count), true, nil
}

// resolveTicket finds the ticket a message refers to: explicit id in the
// message, else the session's lastTicketId, else a prompt. A nil ticket
// with a non-empty reply means the caller should answer with the reply
// and mutate nothing.
func (m *Manager) resolveTicket(ctx context.Context, state *domain.ChatSessionState, cls Classification) (*domain.Ticket, string, error) {
	var id int64
	switch {
	case cls.Entities.TicketID != nil:
		id = *cls.Entities.TicketID
	case state.LastTicketID != nil:
		id = *state.LastTicketID
	default:
		return nil, replySpecifyTicket, nil
	}

	ticket, err := m.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Sprintf("I could not find ticket %d.", id), nil
		}
		return nil, "", err
	}
	return ticket, "", nil
}

func (m *Manager) remember(state *domain.ChatSessionState, intent Intent, ticketID *int64) {
	val := string(intent)
	state.LastIntent = &val
	if ticketID != nil {
		state.LastTicketID = ticketID
	}
}

// appendAssistant logs the assistant reply, best effort on error paths.
func (m *Manager) appendAssistant(ctx context.Context, sessionID, content string) {
	err := m.sessions.AppendMessage(ctx, &domain.ChatMessage{
		SessionID: sessionID,
		Role:      domain.ChatRoleAssistant,
		Content:   content,
	})
	if err != nil {
		m.logger.Warn("failed to append assistant message", zap.String("session_id", sessionID), zap.Error(err))
	}
}
