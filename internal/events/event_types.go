package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventApprovalRequested   EventType = "approval_requested"
	EventApprovalDecided     EventType = "approval_decided"
	EventEscalationRaised    EventType = "escalation_raised"
)

// Severity grades escalation signals.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an id and timestamp.
func NewEvent(eventType EventType, ticketID, actor string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Title     string              `json:"title"`
	CreatedBy string              `json:"created_by"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// ApprovalRequestedPayload is emitted once per created approval record.
type ApprovalRequestedPayload struct {
	ApprovalID int64       `json:"approval_id"`
	Reviewer   string      `json:"reviewer"`
	Role       domain.Role `json:"role"`
	Title      string      `json:"title"`
}

// ApprovalDecidedPayload payload.
type ApprovalDecidedPayload struct {
	ApprovalID int64                   `json:"approval_id"`
	Reviewer   string                  `json:"reviewer"`
	Decision   domain.ApprovalDecision `json:"decision"`
	Submitter  string                  `json:"submitter"`
	Title      string                  `json:"title"`
}

// EscalationRaisedPayload carries the open-ticket count for one tier.
type EscalationRaisedPayload struct {
	Classification domain.Classification `json:"classification"`
	Severity       Severity              `json:"severity"`
	Count          int                   `json:"count"`
	TicketIDs      []string              `json:"ticket_ids"`
}
