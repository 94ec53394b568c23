package domain

import "time"

// AuditAction is the closed vocabulary of ledger actions.
type AuditAction string

const (
	AuditCreated              AuditAction = "CREATED"
	AuditUpdated              AuditAction = "UPDATED"
	AuditStatusChanged        AuditAction = "STATUS_CHANGED"
	AuditFieldUpdated         AuditAction = "FIELD_UPDATED"
	AuditSubmittedForApproval AuditAction = "SUBMITTED_FOR_APPROVAL"
	AuditApproved             AuditAction = "APPROVED"
	AuditRejected             AuditAction = "REJECTED"
	AuditDeleted              AuditAction = "DELETED"
)

// SystemActor is recorded for changes made by scheduled jobs.
const SystemActor = "system"

// AuditLogEntry is an immutable ledger entry.
type AuditLogEntry struct {
	ID        int64
	TicketID  string
	Action    AuditAction
	Actor     string
	FieldName *string
	OldValue  *string
	NewValue  *string
	CreatedAt time.Time
}

// NewAuditEntry builds an entry without a field change.
func NewAuditEntry(ticketID string, action AuditAction, actor string) *AuditLogEntry {
	return &AuditLogEntry{TicketID: ticketID, Action: action, Actor: actor}
}

// NewFieldAuditEntry builds an entry recording one field's old and new value.
func NewFieldAuditEntry(ticketID string, action AuditAction, actor, field, oldValue, newValue string) *AuditLogEntry {
	return &AuditLogEntry{
		TicketID:  ticketID,
		Action:    action,
		Actor:     actor,
		FieldName: &field,
		OldValue:  &oldValue,
		NewValue:  &newValue,
	}
}
