package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket workflows for the HTTP surface.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	feedback   repository.FeedbackRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	FeedbackRepo repository.FeedbackRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
}

// TicketCreateInput describes the ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
}

// TicketListFilter describes agent listing filters.
type TicketListFilter struct {
	RequesterID *int64
	AgentID     *int64
	Unassigned  bool
	Statuses    []domain.TicketStatus
	Category    *string
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		feedback:   deps.FeedbackRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket opens a ticket for a requester. The SLA due date derives
// from the priority window at creation time.
func (s *TicketService) CreateTicket(ctx context.Context, requester *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, util.NewValidationError("title is required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	due := time.Now().Add(priority.SLAWindow())
	ticket := &domain.Ticket{
		RequesterID: requester.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Status:      domain.TicketStatusNew,
		Priority:    priority,
		DueDate:     &due,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  requester.ID,
		Payload: events.TicketCreatedPayload{
			Priority: ticket.Priority,
			Category: ticket.Category,
			Title:    ticket.Title,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets scoped to the caller: requesters see their
// own, agents see everything the filter allows.
func (s *TicketService) ListTickets(ctx context.Context, caller *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		RequesterID: filter.RequesterID,
		AgentID:     filter.AgentID,
		Unassigned:  filter.Unassigned,
		Statuses:    filter.Statuses,
		Category:    filter.Category,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !caller.Role.IsAgent() {
		repoFilter.RequesterID = &caller.ID
	}
	return s.tickets.ListWithFilter(ctx, repoFilter)
}

// GetTicket fetches a ticket with its comment thread, enforcing access.
func (s *TicketService) GetTicket(ctx context.Context, caller *domain.User, ticketID int64) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.loadAccessible(ctx, caller, ticketID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, comments, nil
}

// UpdateStatus transitions a ticket as an agent, with an optional comment.
func (s *TicketService) UpdateStatus(ctx context.Context, agent *domain.User, ticketID int64, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, util.NewValidationError("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if ticket.IsResolved() {
		now := time.Now()
		ticket.ClosedAt = &now
	} else {
		ticket.ClosedAt = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if comment != "" {
		record := &domain.Comment{TicketID: ticket.ID, AuthorID: agent.ID, Content: comment}
		if err := s.comments.Create(ctx, record); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  agent.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// AssignTicket hands a ticket to an agent. New tickets move to In
// Progress on assignment.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.User, ticketID, agentID int64) (*domain.Ticket, error) {
	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, util.NewNotFound("agent", nil)
		}
		return nil, err
	}
	if !agent.Role.IsAgent() {
		return nil, util.NewValidationError("assignee is not an agent", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.AgentID = &agent.ID
	if ticket.Status == domain.TicketStatusNew {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{AgentID: agent.ID},
	})
	return ticket, nil
}

// ReopenTicket moves a resolved ticket back to Reopened for its owner.
func (s *TicketService) ReopenTicket(ctx context.Context, caller *domain.User, ticketID int64, reason string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != caller.ID && !caller.Role.IsAgent() {
		return nil, util.NewForbidden("access denied")
	}
	if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
		return nil, util.NewValidationError("only resolved tickets can be reopened", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusReopened
	ticket.ClosedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if reason != "" {
		record := &domain.Comment{TicketID: ticket.ID, AuthorID: caller.ID, Content: reason}
		if err := s.comments.Create(ctx, record); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  caller.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Comment:   reason,
		},
	})
	return ticket, nil
}

// AddComment appends to the ticket thread, enforcing access.
func (s *TicketService) AddComment(ctx context.Context, caller *domain.User, ticketID int64, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, util.NewValidationError("content is required", nil)
	}

	ticket, err := s.loadAccessible(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: caller.ID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		ActorID:  caller.ID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

// SubmitFeedback records a one-time rating on the caller's resolved ticket.
func (s *TicketService) SubmitFeedback(ctx context.Context, caller *domain.User, ticketID int64, rating int, comment string) (*domain.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, util.NewValidationError("rating must be between 1 and 5", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != caller.ID {
		return nil, util.NewForbidden("access denied")
	}
	if !ticket.IsResolved() {
		return nil, util.NewValidationError("feedback requires a resolved ticket", nil)
	}
	if _, err := s.feedback.GetByTicket(ctx, ticket.ID); err == nil {
		return nil, util.NewConflict("feedback already submitted", nil)
	} else if err != pgx.ErrNoRows {
		return nil, err
	}

	record := &domain.Feedback{
		TicketID: ticket.ID,
		Rating:   rating,
		Comment:  strings.TrimSpace(comment),
	}
	if err := s.feedback.Create(ctx, record); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventFeedbackSubmitted,
		TicketID: ticket.ID,
		ActorID:  caller.ID,
		Payload:  events.FeedbackSubmittedPayload{Rating: rating},
	})
	return record, nil
}

func (s *TicketService) loadAccessible(ctx context.Context, caller *domain.User, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != caller.ID && !caller.Role.IsAgent() {
		return nil, util.NewForbidden("access denied")
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved},
	domain.TicketStatusInProgress: {domain.TicketStatusPending, domain.TicketStatusResolved},
	domain.TicketStatusPending:    {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusReopened},
	domain.TicketStatusClosed:     {domain.TicketStatusReopened},
	domain.TicketStatusReopened:   {domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
