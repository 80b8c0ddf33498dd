package domain

import "time"

// Comment is a thread entry on a ticket.
type Comment struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

// Feedback is a post-resolution satisfaction record, one per ticket.
type Feedback struct {
	ID        int64
	TicketID  int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}
