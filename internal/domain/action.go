package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionKind tags the variant carried by a PendingAction.
type ActionKind string

const (
	ActionAddComment     ActionKind = "add_comment"
	ActionCloseTicket    ActionKind = "close_ticket"
	ActionReopenTicket   ActionKind = "reopen_ticket"
	ActionSetStatus      ActionKind = "set_status"
	ActionSubmitFeedback ActionKind = "submit_feedback"
	ActionAssignTicket   ActionKind = "assign_ticket"
)

// AddCommentAction appends a comment to a ticket.
type AddCommentAction struct {
	TicketID int64  `json:"ticket_id"`
	Content  string `json:"content"`
}

// CloseTicketAction resolves a ticket, optionally with a reason.
type CloseTicketAction struct {
	TicketID int64  `json:"ticket_id"`
	Reason   string `json:"reason,omitempty"`
}

// ReopenTicketAction moves a resolved ticket back to Reopened.
type ReopenTicketAction struct {
	TicketID int64  `json:"ticket_id"`
	Reason   string `json:"reason,omitempty"`
}

// SetStatusAction moves a ticket to an arbitrary status.
type SetStatusAction struct {
	TicketID int64        `json:"ticket_id"`
	Status   TicketStatus `json:"status"`
}

// SubmitFeedbackAction records a post-resolution rating.
type SubmitFeedbackAction struct {
	TicketID int64  `json:"ticket_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
}

// AssignTicketAction assigns a ticket to the confirming agent.
type AssignTicketAction struct {
	TicketID int64 `json:"ticket_id"`
}

// PendingAction is the tagged union held in ChatSessionState while the
// dialogue manager awaits explicit confirm/cancel. Exactly one variant
// pointer matching Kind is set.
type PendingAction struct {
	Kind           ActionKind            `json:"kind"`
	AddComment     *AddCommentAction     `json:"add_comment,omitempty"`
	CloseTicket    *CloseTicketAction    `json:"close_ticket,omitempty"`
	ReopenTicket   *ReopenTicketAction   `json:"reopen_ticket,omitempty"`
	SetStatus      *SetStatusAction      `json:"set_status,omitempty"`
	SubmitFeedback *SubmitFeedbackAction `json:"submit_feedback,omitempty"`
	AssignTicket   *AssignTicketAction   `json:"assign_ticket,omitempty"`
}

// ErrMalformedAction signals a stored pending action whose variant does
// not match its kind tag.
var ErrMalformedAction = errors.New("malformed pending action")

// TicketID returns the ticket the action targets.
func (a *PendingAction) TicketID() (int64, error) {
	switch a.Kind {
	case ActionAddComment:
		if a.AddComment != nil {
			return a.AddComment.TicketID, nil
		}
	case ActionCloseTicket:
		if a.CloseTicket != nil {
			return a.CloseTicket.TicketID, nil
		}
	case ActionReopenTicket:
		if a.ReopenTicket != nil {
			return a.ReopenTicket.TicketID, nil
		}
	case ActionSetStatus:
		if a.SetStatus != nil {
			return a.SetStatus.TicketID, nil
		}
	case ActionSubmitFeedback:
		if a.SubmitFeedback != nil {
			return a.SubmitFeedback.TicketID, nil
		}
	case ActionAssignTicket:
		if a.AssignTicket != nil {
			return a.AssignTicket.TicketID, nil
		}
	}
	return 0, ErrMalformedAction
}

// Describe renders the action for confirmation prompts, e.g.
// "close ticket 42".
func (a *PendingAction) Describe() string {
	switch a.Kind {
	case ActionAddComment:
		if a.AddComment != nil {
			return fmt.Sprintf("add a comment to ticket %d", a.AddComment.TicketID)
		}
	case ActionCloseTicket:
		if a.CloseTicket != nil {
			return fmt.Sprintf("close ticket %d", a.CloseTicket.TicketID)
		}
	case ActionReopenTicket:
		if a.ReopenTicket != nil {
			return fmt.Sprintf("reopen ticket %d", a.ReopenTicket.TicketID)
		}
	case ActionSetStatus:
		if a.SetStatus != nil {
			return fmt.Sprintf("set ticket %d to '%s'", a.SetStatus.TicketID, a.SetStatus.Status)
		}
	case ActionSubmitFeedback:
		if a.SubmitFeedback != nil {
			return fmt.Sprintf("submit a %d-star rating for ticket %d", a.SubmitFeedback.Rating, a.SubmitFeedback.TicketID)
		}
	case ActionAssignTicket:
		if a.AssignTicket != nil {
			return fmt.Sprintf("assign ticket %d to you", a.AssignTicket.TicketID)
		}
	}
	return "perform an unknown action"
}

// MarshalPendingAction serializes for the JSONB state column.
func MarshalPendingAction(a *PendingAction) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// UnmarshalPendingAction deserializes the JSONB state column.
func UnmarshalPendingAction(raw []byte) (*PendingAction, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a PendingAction
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
