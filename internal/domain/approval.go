package domain

import "time"

// ApprovalDecision captures the reviewer verdict on a record.
type ApprovalDecision string

const (
	DecisionPending  ApprovalDecision = "PENDING"
	DecisionApproved ApprovalDecision = "APPROVED"
	DecisionRejected ApprovalDecision = "REJECTED"
)

// ApprovalRecord is one reviewer gate for a ticket submission. Decisions are write-once.
type ApprovalRecord struct {
	ID        int64
	TicketID  string
	Reviewer  string
	Role      Role
	Decision  ApprovalDecision
	Comments  *string
	DecidedAt *time.Time
	CreatedAt time.Time
}

// IsDecided reports whether the record already carries a verdict.
func (a *ApprovalRecord) IsDecided() bool {
	return a.Decision != DecisionPending
}
