package dto

import (
	"time"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// DecisionRequest carries optional reviewer comments for approve and reject.
type DecisionRequest struct {
	Comments *string `json:"comments"`
}

// ApprovalResponse is one approval record.
type ApprovalResponse struct {
	ID        int64                   `json:"id"`
	TicketID  string                  `json:"ticket_id"`
	Reviewer  string                  `json:"reviewer"`
	Role      domain.Role             `json:"role"`
	Decision  domain.ApprovalDecision `json:"decision"`
	Comments  *string                 `json:"comments"`
	DecidedAt *time.Time              `json:"decided_at"`
	CreatedAt time.Time               `json:"created_at"`
}
