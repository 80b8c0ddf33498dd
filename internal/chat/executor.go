package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Executor performs the mutation a confirmed pending action describes.
// Each kind performs exactly one persistence mutation and returns a
// textual summary for the assistant reply.
type Executor struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	feedback   repository.FeedbackRepository
	dispatcher events.Dispatcher
}

// NewExecutor builds the executor.
func NewExecutor(tickets repository.TicketRepository, comments repository.CommentRepository, feedback repository.FeedbackRepository, dispatcher events.Dispatcher) *Executor {
	return &Executor{
		tickets:    tickets,
		comments:   comments,
		feedback:   feedback,
		dispatcher: dispatcher,
	}
}

// Execute runs the action on behalf of the confirming user. Invoked only
// on the confirm transition; the caller clears the pending action on
// success and leaves it set on failure so confirmation can be retried.
func (e *Executor) Execute(ctx context.Context, action *domain.PendingAction, actor *domain.User) (string, error) {
	var summary string
	var err error

	switch action.Kind {
	case domain.ActionAddComment:
		summary, err = e.addComment(ctx, action.AddComment, actor)
	case domain.ActionCloseTicket:
		summary, err = e.closeTicket(ctx, action.CloseTicket, actor)
	case domain.ActionReopenTicket:
		summary, err = e.reopenTicket(ctx, action.ReopenTicket, actor)
	case domain.ActionSetStatus:
		summary, err = e.setStatus(ctx, action.SetStatus, actor)
	case domain.ActionSubmitFeedback:
		summary, err = e.submitFeedback(ctx, action.SubmitFeedback)
	case domain.ActionAssignTicket:
		summary, err = e.assignTicket(ctx, action.AssignTicket, actor)
	default:
		return "", domain.ErrMalformedAction
	}
	if err != nil {
		return "", err
	}

	ticketID, _ := action.TicketID()
	e.publish(ctx, events.Event{
		Type:     events.EventChatActionExecuted,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload:  events.ChatActionExecutedPayload{ActionKind: action.Kind},
	})
	return summary, nil
}

func (e *Executor) addComment(ctx context.Context, action *domain.AddCommentAction, actor *domain.User) (string, error) {
	if action == nil {
		return "", domain.ErrMalformedAction
	}
	comment := &domain.Comment{
		TicketID: action.TicketID,
		AuthorID: actor.ID,
		Content:  action.Content,
	}
	if err := e.comments.Create(ctx, comment); err != nil {
		return "", err
	}
	return fmt.Sprintf("Comment added to ticket %d.", action.TicketID), nil
}

func (e *Executor) closeTicket(ctx context.Context, action *domain.CloseTicketAction, actor *domain.User) (string, error) {
	if action == nil {
		return "", domain.ErrMalformedAction
	}
	summary := fmt.Sprintf("Ticket %d closed as resolved.", action.TicketID)
	return summary, e.transition(ctx, action.TicketID, domain.TicketStatusResolved, action.Reason, actor)
}

func (e *Executor) reopenTicket(ctx context.Context, action *domain.ReopenTicketAction, actor *domain.User) (string, error) {
	if action == nil {
		return "", domain.ErrMalformedAction
	}
	summary := fmt.Sprintf("Ticket %d reopened.", action.TicketID)
	return summary, e.transition(ctx, action.TicketID, domain.TicketStatusReopened, action.Reason, actor)
}

func (e *Executor) setStatus(ctx context.Context, action *domain.SetStatusAction, actor *domain.User) (string, error) {
	if action == nil {
		return "", domain.ErrMalformedAction
	}
	summary := fmt.Sprintf("Ticket %d status set to '%s'.", action.TicketID, action.Status)
	return summary, e.transition(ctx, action.TicketID, action.Status, "", actor)
}

func (e *Executor) submitFeedback(ctx context.Context, action *domain.SubmitFeedbackAction) (string, error) {
	if action == nil {
		return "", domain.ErrMalformedAction
	}
	feedback := &domain.Feedback{
		TicketID: action.TicketID,
		Rating:   action.Rating,
		Comment:  action.Comment,
	}
	if err := e.feedback.Create(ctx, feedback); err != nil {
		return "", err
	}
	return fmt.Sprintf("Feedback recorded for ticket %d. Thank you!", action.TicketID), nil
}

func (e *Executor) assignTicket(ctx context.Context, action *domain.AssignTicketAction, actor *domain.User) (string, error) {
	if action == nil {
		return "", domain.ErrMalformedAction
	}
	ticket, err := e.tickets.GetByID(ctx, action.TicketID)
	if err != nil {
		return "", err
	}
	agentID := actor.ID
	ticket.AgentID = &agentID
	if ticket.Status == domain.TicketStatusNew {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := e.tickets.Update(ctx, ticket); err != nil {
		return "", err
	}
	e.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{AgentID: agentID},
	})
	return fmt.Sprintf("Ticket %d assigned to you.", action.TicketID), nil
}

// transition updates the ticket status; a non-empty reason is preserved
// as a comment next to the status change.
func (e *Executor) transition(ctx context.Context, ticketID int64, newStatus domain.TicketStatus, reason string, actor *domain.User) error {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus == domain.TicketStatusResolved || newStatus == domain.TicketStatusClosed {
		now := time.Now()
		ticket.ClosedAt = &now
	} else {
		ticket.ClosedAt = nil
	}
	if err := e.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	if reason != "" {
		comment := &domain.Comment{
			TicketID: ticketID,
			AuthorID: actor.ID,
			Content:  reason,
		}
		if err := e.comments.Create(ctx, comment); err != nil {
			return err
		}
	}

	e.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   reason,
		},
	})
	return nil
}

func (e *Executor) publish(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = e.dispatcher.Publish(ctx, event)
}
