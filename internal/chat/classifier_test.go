package chat

import (
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestClassifyIntents(t *testing.T) {
	cases := []struct {
		name    string
		message string
		intent  Intent
	}{
		{"confirm exact", "yes", IntentConfirmAction},
		{"confirm word", "Confirm", IntentConfirmAction},
		{"confirm needs exact match", "yes please", IntentUnknown},
		{"cancel exact", "no", IntentCancelAction},
		{"cancel word", "cancel", IntentCancelAction},
		{"close", "close 42", IntentCloseTicket},
		{"resolve", "resolve ticket 42", IntentCloseTicket},
		{"reopen", "reopen 13", IntentReopenTicket},
		{"assign", "assign 8 to me", IntentAssignToMe},
		{"create", "I need a new ticket for my laptop", IntentCreateTicket},
		{"set status", "set the status of 9 to pending", IntentSetStatus},
		{"mark as", "mark 9 as resolved", IntentSetStatus},
		{"comment colon", "comment: waiting for parts", IntentAddComment},
		{"add comment", "add comment 42 waiting for parts", IntentAddComment},
		{"feedback", "rate 42 5 stars", IntentSubmitFeedback},
		{"ticket status", "what is the status of ticket 7", IntentTicketStatus},
		{"bare status question", "what is the status?", IntentTicketStatus},
		{"ticket risk", "why is ticket 12 delayed", IntentTicketRisk},
		{"top risky wins over risk", "show me the top risky tickets", IntentTopRisky},
		{"overdue", "which tickets are overdue", IntentOverdueList},
		{"my tickets", "show my tickets", IntentMyTickets},
		{"agent priority", "what should i work on next", IntentAgentPriority},
		{"greeting", "hello there", IntentGreeting},
		{"unknown", "what is the weather like", IntentUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.message)
			if got.Intent != tc.intent {
				t.Fatalf("Classify(%q).Intent = %q, want %q", tc.message, got.Intent, tc.intent)
			}
		})
	}
}

func TestClassifyExtractsTicketID(t *testing.T) {
	got := Classify("close 42")
	if got.Entities.TicketID == nil || *got.Entities.TicketID != 42 {
		t.Fatalf("expected ticket id 42, got %v", got.Entities.TicketID)
	}

	got = Classify("what is the status?")
	if got.Entities.TicketID != nil {
		t.Fatalf("expected no ticket id, got %d", *got.Entities.TicketID)
	}
}

func TestClassifyExtractsRating(t *testing.T) {
	got := Classify("rate 42 5 stars")
	if got.Entities.TicketID == nil || *got.Entities.TicketID != 42 {
		t.Fatalf("expected ticket id 42, got %v", got.Entities.TicketID)
	}
	if got.Entities.Rating == nil || *got.Entities.Rating != 5 {
		t.Fatalf("expected rating 5, got %v", got.Entities.Rating)
	}

	// 42 is not a standalone digit, so no rating should surface
	got = Classify("rate ticket 42")
	if got.Entities.Rating != nil {
		t.Fatalf("expected no rating, got %d", *got.Entities.Rating)
	}
}

func TestClassifyExtractsStatus(t *testing.T) {
	cases := []struct {
		message string
		status  domain.TicketStatus
	}{
		{"set status of 9 to in progress", domain.TicketStatusInProgress},
		{"mark 9 as pending", domain.TicketStatusPending},
		{"mark 9 as resolved", domain.TicketStatusResolved},
		{"mark 9 as closed", domain.TicketStatusResolved},
		{"set status of 9 to reopened", domain.TicketStatusReopened},
	}

	for _, tc := range cases {
		got := Classify(tc.message)
		if got.Entities.Status == nil {
			t.Fatalf("Classify(%q): expected status %q, got none", tc.message, tc.status)
		}
		if *got.Entities.Status != tc.status {
			t.Fatalf("Classify(%q): status = %q, want %q", tc.message, *got.Entities.Status, tc.status)
		}
	}
}

func TestClassifyExtractsCommentBody(t *testing.T) {
	got := Classify("add comment to ticket 42: waiting for parts")
	if got.Entities.CommentBody != "waiting for parts" {
		t.Fatalf("body = %q, want %q", got.Entities.CommentBody, "waiting for parts")
	}

	got = Classify("add comment 42 waiting for parts")
	if got.Entities.CommentBody != "waiting for parts" {
		t.Fatalf("body = %q, want %q", got.Entities.CommentBody, "waiting for parts")
	}

	got = Classify("add comment")
	if got.Entities.CommentBody != "" {
		t.Fatalf("body = %q, want empty", got.Entities.CommentBody)
	}
}
