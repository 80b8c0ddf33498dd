package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "New"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusReopened   TicketStatus = "Reopened"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// SLAWindow returns how long a ticket of this priority has until its
// due date, counted from creation.
func (p TicketPriority) SLAWindow() time.Duration {
	switch p {
	case TicketPriorityHigh:
		return 24 * time.Hour
	case TicketPriorityMedium:
		return 72 * time.Hour
	default:
		return 120 * time.Hour
	}
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64
	RequesterID int64
	AgentID     *int64
	Title       string
	Description string
	Category    string
	Status      TicketStatus
	Priority    TicketPriority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// IsResolved reports whether the ticket reached a terminal resolved state.
func (t *Ticket) IsResolved() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// IsOverdue reports whether the due date has passed without resolution.
func (t *Ticket) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.IsResolved()
}
