package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		out = append(out, event.Type)
	}
	return out
}

func TestExecuteCloseSetsClosedAtAndReasonComment(t *testing.T) {
	tickets := newFakeTicketRepo()
	comments := newFakeCommentRepo()
	dispatcher := &recordingDispatcher{}
	executor := NewExecutor(tickets, comments, newFakeFeedbackRepo(), dispatcher)

	tickets.seed(domain.Ticket{ID: 42, RequesterID: 1, Status: domain.TicketStatusInProgress, Priority: domain.TicketPriorityHigh})

	action := &domain.PendingAction{
		Kind:        domain.ActionCloseTicket,
		CloseTicket: &domain.CloseTicketAction{TicketID: 42, Reason: "fixed by replacing the cable"},
	}
	summary, err := executor.Execute(context.Background(), action, testAgent)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if summary != "Ticket 42 closed as resolved." {
		t.Fatalf("summary = %q", summary)
	}

	ticket, _ := tickets.GetByID(context.Background(), 42)
	if ticket.Status != domain.TicketStatusResolved {
		t.Fatalf("status = %q", ticket.Status)
	}
	if ticket.ClosedAt == nil {
		t.Fatal("closed_at not set")
	}

	stored, _ := comments.ListByTicket(context.Background(), 42)
	if len(stored) != 1 || stored[0].Content != "fixed by replacing the cable" {
		t.Fatalf("reason comment not stored: %+v", stored)
	}

	types := dispatcher.types()
	if len(types) != 2 || types[0] != events.EventTicketStatusChanged || types[1] != events.EventChatActionExecuted {
		t.Fatalf("published events = %v", types)
	}
}

func TestExecuteAssignMovesNewTicketToInProgress(t *testing.T) {
	tickets := newFakeTicketRepo()
	executor := NewExecutor(tickets, newFakeCommentRepo(), newFakeFeedbackRepo(), events.NewInMemoryDispatcher())

	tickets.seed(domain.Ticket{ID: 8, RequesterID: 1, Status: domain.TicketStatusNew, Priority: domain.TicketPriorityMedium})

	action := &domain.PendingAction{
		Kind:         domain.ActionAssignTicket,
		AssignTicket: &domain.AssignTicketAction{TicketID: 8},
	}
	summary, err := executor.Execute(context.Background(), action, testAgent)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if summary != "Ticket 8 assigned to you." {
		t.Fatalf("summary = %q", summary)
	}

	ticket, _ := tickets.GetByID(context.Background(), 8)
	if ticket.AgentID == nil || *ticket.AgentID != testAgent.ID {
		t.Fatalf("agent_id = %v", ticket.AgentID)
	}
	if ticket.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %q", ticket.Status)
	}
}

func TestExecuteRejectsMalformedAction(t *testing.T) {
	executor := NewExecutor(newFakeTicketRepo(), newFakeCommentRepo(), newFakeFeedbackRepo(), events.NewInMemoryDispatcher())

	cases := []*domain.PendingAction{
		{Kind: "drop_table"},
		{Kind: domain.ActionCloseTicket},    // kind without variant
		{Kind: domain.ActionAddComment},     // kind without variant
		{Kind: domain.ActionSubmitFeedback}, // kind without variant
	}
	for _, action := range cases {
		if _, err := executor.Execute(context.Background(), action, testAgent); err != domain.ErrMalformedAction {
			t.Fatalf("Execute(%+v) err = %v, want ErrMalformedAction", action, err)
		}
	}
}

func TestExecuteSubmitFeedbackStoresRating(t *testing.T) {
	feedback := newFakeFeedbackRepo()
	executor := NewExecutor(newFakeTicketRepo(), newFakeCommentRepo(), feedback, events.NewInMemoryDispatcher())

	action := &domain.PendingAction{
		Kind:           domain.ActionSubmitFeedback,
		SubmitFeedback: &domain.SubmitFeedbackAction{TicketID: 3, Rating: 4, Comment: "quick turnaround"},
	}
	summary, err := executor.Execute(context.Background(), action, testRequester)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if summary != "Feedback recorded for ticket 3. Thank you!" {
		t.Fatalf("summary = %q", summary)
	}

	stored, err := feedback.GetByTicket(context.Background(), 3)
	if err != nil {
		t.Fatalf("feedback missing: %v", err)
	}
	if stored.Rating != 4 || stored.Comment != "quick turnaround" {
		t.Fatalf("stored = %+v", stored)
	}
}
