package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/intelligence"
)

type managerFixture struct {
	tickets  *fakeTicketRepo
	comments *fakeCommentRepo
	feedback *fakeFeedbackRepo
	sessions *fakeSessionRepo
	stats    *fakeStatsProvider
	ranker   *fakeRanker
	manager  *Manager
}

func newManagerFixture() *managerFixture {
	tickets := newFakeTicketRepo()
	comments := newFakeCommentRepo()
	feedback := newFakeFeedbackRepo()
	sessions := newFakeSessionRepo()
	stats := &fakeStatsProvider{snapshot: domain.StatsSnapshot{Total: 100}}
	ranker := &fakeRanker{}

	manager := NewManager(ManagerDependencies{
		Sessions: sessions,
		Tickets:  tickets,
		Stats:    stats,
		Ranker:   ranker,
		Executor: NewExecutor(tickets, comments, feedback, events.NewInMemoryDispatcher()),
		Logger:   zap.NewNop(),
	})

	return &managerFixture{
		tickets:  tickets,
		comments: comments,
		feedback: feedback,
		sessions: sessions,
		stats:    stats,
		ranker:   ranker,
		manager:  manager,
	}
}

var (
	testRequester = &domain.User{ID: 1, Name: "Riley", Role: domain.RoleUser}
	testAgent     = &domain.User{ID: 2, Name: "Dana", Role: domain.RoleAgent}
)

func (f *managerFixture) turn(t *testing.T, user *domain.User, sessionID, message string) string {
	t.Helper()
	reply, err := f.manager.HandleTurn(context.Background(), user, sessionID, message)
	if err != nil {
		t.Fatalf("HandleTurn(%q): %v", message, err)
	}
	return reply
}

func TestConfirmFlowClosesTicket(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Title: "Printer broken", Status: domain.TicketStatusNew, Priority: domain.TicketPriorityHigh})
	f.sessions.seedSession("s1", testAgent.ID)

	reply := f.turn(t, testAgent, "s1", "close 42")
	if !strings.Contains(reply, "close ticket 42") {
		t.Fatalf("confirmation prompt should name the action, got %q", reply)
	}
	if !strings.Contains(reply, "(yes/no)") {
		t.Fatalf("confirmation prompt should ask yes/no, got %q", reply)
	}

	state := f.sessions.storedState("s1")
	if state.PendingAction == nil || state.PendingAction.Kind != domain.ActionCloseTicket {
		t.Fatalf("expected pending close action, got %+v", state.PendingAction)
	}

	// nothing mutated until confirmed
	ticket, _ := f.tickets.GetByID(context.Background(), 42)
	if ticket.Status != domain.TicketStatusNew {
		t.Fatalf("ticket mutated before confirmation: %q", ticket.Status)
	}

	reply = f.turn(t, testAgent, "s1", "yes")
	if reply != "Ticket 42 closed as resolved." {
		t.Fatalf("unexpected confirm reply %q", reply)
	}

	ticket, _ = f.tickets.GetByID(context.Background(), 42)
	if ticket.Status != domain.TicketStatusResolved {
		t.Fatalf("ticket status = %q, want Resolved", ticket.Status)
	}
	if ticket.ClosedAt == nil {
		t.Fatal("closed_at should be set")
	}

	state = f.sessions.storedState("s1")
	if state.PendingAction != nil {
		t.Fatalf("pending action should be cleared, got %+v", state.PendingAction)
	}
}

func TestCancelLeavesDataUnchanged(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Title: "Printer broken", Status: domain.TicketStatusNew, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testRequester.ID)

	f.turn(t, testRequester, "s1", "add comment to ticket 42: still broken")

	reply := f.turn(t, testRequester, "s1", "no")
	if reply != replyCancelled {
		t.Fatalf("cancel reply = %q", reply)
	}

	if f.comments.count() != 0 {
		t.Fatalf("comment count = %d, want 0", f.comments.count())
	}
	if state := f.sessions.storedState("s1"); state.PendingAction != nil {
		t.Fatal("pending action should be cleared after cancel")
	}
}

func TestDoubleConfirmIsNoOp(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Status: domain.TicketStatusNew, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testRequester.ID)

	f.turn(t, testRequester, "s1", "add comment to ticket 42: still broken")
	f.turn(t, testRequester, "s1", "yes")

	if f.comments.count() != 1 {
		t.Fatalf("comment count = %d, want 1", f.comments.count())
	}

	reply := f.turn(t, testRequester, "s1", "yes")
	if reply != replyNothingToConfirm {
		t.Fatalf("second confirm reply = %q", reply)
	}
	if f.comments.count() != 1 {
		t.Fatalf("second confirm mutated data, comment count = %d", f.comments.count())
	}
}

func TestStatusQuestionUsesTicketMemory(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 7, RequesterID: testRequester.ID, Status: domain.TicketStatusInProgress, Priority: domain.TicketPriorityHigh})
	f.sessions.seedSession("s1", testRequester.ID)

	// no ticket in the message and no memory yet
	reply := f.turn(t, testRequester, "s1", "what is the status?")
	if reply != replySpecifyTicket {
		t.Fatalf("reply = %q, want %q", reply, replySpecifyTicket)
	}

	reply = f.turn(t, testRequester, "s1", "what is the status of ticket 7")
	want := "Ticket 7 is currently 'In Progress' with priority 'High'."
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}

	// follow-up without an id resolves against memory
	reply = f.turn(t, testRequester, "s1", "what is the status?")
	if reply != want {
		t.Fatalf("follow-up reply = %q, want %q", reply, want)
	}
}

func TestUnknownTicketYieldsNotFoundReply(t *testing.T) {
	f := newManagerFixture()
	f.sessions.seedSession("s1", testRequester.ID)

	reply := f.turn(t, testRequester, "s1", "what is the status of ticket 999")
	if reply != "I could not find ticket 999." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestEveryTurnLogsUserAndAssistantPair(t *testing.T) {
	f := newManagerFixture()
	f.sessions.seedSession("s1", testRequester.ID)

	inputs := []string{"hello", "what is the weather like", "what is the status?"}
	for _, input := range inputs {
		f.turn(t, testRequester, "s1", input)
	}

	messages := f.sessions.sessionMessages("s1")
	if len(messages) != 2*len(inputs) {
		t.Fatalf("message count = %d, want %d", len(messages), 2*len(inputs))
	}
	for i, msg := range messages {
		wantRole := domain.ChatRoleUser
		if i%2 == 1 {
			wantRole = domain.ChatRoleAssistant
		}
		if msg.Role != wantRole {
			t.Fatalf("message %d role = %q, want %q", i, msg.Role, wantRole)
		}
	}
}

func TestSessionOwnershipEnforced(t *testing.T) {
	f := newManagerFixture()
	f.sessions.seedSession("s1", testRequester.ID)

	if _, err := f.manager.HandleTurn(context.Background(), testAgent, "s1", "hello"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign session err = %v, want ErrSessionNotFound", err)
	}
	if _, err := f.manager.HandleTurn(context.Background(), testRequester, "missing", "hello"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session err = %v, want ErrSessionNotFound", err)
	}

	// rejected turns must not be logged
	if got := len(f.sessions.sessionMessages("s1")); got != 0 {
		t.Fatalf("message count = %d, want 0", got)
	}
}

func TestRoleGateBlocksBeforePending(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Status: domain.TicketStatusNew, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testRequester.ID)

	reply := f.turn(t, testRequester, "s1", "close 42")
	if reply != replyAgentsOnly {
		t.Fatalf("reply = %q, want %q", reply, replyAgentsOnly)
	}
	if state := f.sessions.storedState("s1"); state.PendingAction != nil {
		t.Fatal("refused action must not become pending")
	}

	reply = f.turn(t, testRequester, "s1", "show me the top risky tickets")
	if reply != replyAgentsOnly {
		t.Fatalf("top risky reply = %q, want %q", reply, replyAgentsOnly)
	}
}

func TestPendingReminderOnUnrelatedMessage(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Status: domain.TicketStatusNew, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testAgent.ID)

	f.turn(t, testAgent, "s1", "close 42")

	reply := f.turn(t, testAgent, "s1", "hello")
	if !strings.Contains(reply, "pending action") || !strings.Contains(reply, "close ticket 42") {
		t.Fatalf("reminder reply = %q", reply)
	}

	// still confirmable afterwards
	reply = f.turn(t, testAgent, "s1", "yes")
	if reply != "Ticket 42 closed as resolved." {
		t.Fatalf("confirm after reminder = %q", reply)
	}
}

func TestExecutorFailureKeepsPendingAction(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Status: domain.TicketStatusNew, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testAgent.ID)

	f.turn(t, testAgent, "s1", "close 42")
	f.tickets.updateErr = errors.New("connection reset")

	if _, err := f.manager.HandleTurn(context.Background(), testAgent, "s1", "yes"); err == nil {
		t.Fatal("expected error from failed execution")
	}

	if state := f.sessions.storedState("s1"); state.PendingAction == nil {
		t.Fatal("pending action should survive a failed execution")
	}

	messages := f.sessions.sessionMessages("s1")
	last := messages[len(messages)-1]
	if last.Role != domain.ChatRoleAssistant || last.Content != replyInternalError {
		t.Fatalf("last message = %+v, want assistant error reply", last)
	}

	// retry succeeds once the store recovers
	f.tickets.updateErr = nil
	reply := f.turn(t, testAgent, "s1", "yes")
	if reply != "Ticket 42 closed as resolved." {
		t.Fatalf("retry reply = %q", reply)
	}
}

func TestFeedbackFlowOnOwnResolvedTicket(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testRequester.ID)

	reply := f.turn(t, testRequester, "s1", "rate 42 5 stars")
	if !strings.Contains(reply, "submit a 5-star rating for ticket 42") {
		t.Fatalf("prompt = %q", reply)
	}

	f.turn(t, testRequester, "s1", "yes")

	stored, err := f.feedback.GetByTicket(context.Background(), 42)
	if err != nil {
		t.Fatalf("feedback not stored: %v", err)
	}
	if stored.Rating != 5 {
		t.Fatalf("rating = %d, want 5", stored.Rating)
	}
}

func TestFeedbackRejectedOnForeignOrOpenTicket(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Status: domain.TicketStatusNew, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testRequester.ID)

	reply := f.turn(t, testRequester, "s1", "rate 42 5 stars")
	if reply != replyOwnResolvedOnly {
		t.Fatalf("open ticket reply = %q", reply)
	}
}

func TestReopenRequiresOwnResolvedTicket(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 42, RequesterID: testRequester.ID, Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testRequester.ID)

	reply := f.turn(t, testRequester, "s1", "reopen 42")
	if !strings.Contains(reply, "reopen ticket 42") {
		t.Fatalf("prompt = %q", reply)
	}
	reply = f.turn(t, testRequester, "s1", "yes")
	if reply != "Ticket 42 reopened." {
		t.Fatalf("confirm reply = %q", reply)
	}

	ticket, _ := f.tickets.GetByID(context.Background(), 42)
	if ticket.Status != domain.TicketStatusReopened {
		t.Fatalf("status = %q, want Reopened", ticket.Status)
	}
	if ticket.ClosedAt != nil {
		t.Fatal("closed_at should be cleared on reopen")
	}
}

func TestGreetingAndFallbackReplies(t *testing.T) {
	f := newManagerFixture()
	f.sessions.seedSession("s1", testRequester.ID)

	reply := f.turn(t, testRequester, "s1", "hello")
	if reply != "Hello Riley. How can I assist you today?" {
		t.Fatalf("greeting reply = %q", reply)
	}

	reply = f.turn(t, testRequester, "s1", "what is the weather like")
	if reply != replyUnknown {
		t.Fatalf("fallback reply = %q", reply)
	}
}

func TestTopRiskyReplyListsRankedTickets(t *testing.T) {
	f := newManagerFixture()
	f.sessions.seedSession("s1", testAgent.ID)
	f.ranker.ranked = []intelligence.RankedTicket{
		{ID: 9, Title: "VPN down", RiskScore: 85, Reasons: []string{"overdue", "unassigned"}},
		{ID: 4, Title: "Slow laptop", RiskScore: 40, Reasons: []string{"priority is high"}},
	}

	reply := f.turn(t, testAgent, "s1", "show me the top risky tickets")
	if !strings.Contains(reply, "#9 'VPN down' - 85/100 (overdue; unassigned)") {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(reply, "#4 'Slow laptop' - 40/100") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestAgentPriorityCountsActiveTickets(t *testing.T) {
	f := newManagerFixture()
	agentID := testAgent.ID
	f.tickets.seed(domain.Ticket{ID: 1, RequesterID: 1, AgentID: &agentID, Status: domain.TicketStatusInProgress, Priority: domain.TicketPriorityHigh})
	f.tickets.seed(domain.Ticket{ID: 2, RequesterID: 1, AgentID: &agentID, Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testAgent.ID)

	reply := f.turn(t, testAgent, "s1", "what should i work on next")
	if reply != "You have 1 active tickets. Focus on high priority and overdue ones first." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestOverdueListForAgents(t *testing.T) {
	f := newManagerFixture()
	past := time.Now().Add(-2 * time.Hour)
	f.tickets.seed(domain.Ticket{ID: 5, RequesterID: 1, Title: "Mail outage", Status: domain.TicketStatusInProgress, Priority: domain.TicketPriorityHigh, DueDate: &past})
	f.sessions.seedSession("s1", testAgent.ID)

	reply := f.turn(t, testAgent, "s1", "which tickets are overdue")
	if !strings.Contains(reply, "#5 'Mail outage'") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestMissingEntitiesPromptInsteadOfPending(t *testing.T) {
	f := newManagerFixture()
	f.tickets.seed(domain.Ticket{ID: 9, RequesterID: testRequester.ID, Status: domain.TicketStatusNew, Priority: domain.TicketPriorityLow})
	f.sessions.seedSession("s1", testAgent.ID)

	reply := f.turn(t, testAgent, "s1", "change the status of 9")
	if reply != replyMissingStatus {
		t.Fatalf("reply = %q, want status prompt", reply)
	}
	if state := f.sessions.storedState("s1"); state.PendingAction != nil {
		t.Fatal("incomplete action must not become pending")
	}
}
