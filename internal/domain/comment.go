package domain

import "time"

// TicketComment is a free-text note on a ticket thread.
type TicketComment struct {
	ID        string
	TicketID  string
	Author    string
	Body      string
	CreatedAt time.Time
}
