package dto

import (
	"time"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	ImpactCount           *int     `json:"impact_count"`
	Priority              *int     `json:"priority"`
	TargetResolutionHours *int     `json:"target_resolution_hours"`
	AssignedTo            *string  `json:"assigned_to"`
	AssignmentGroup       *string  `json:"assignment_group"`
	RootCause             *string  `json:"root_cause"`
	Workaround            *string  `json:"workaround"`
	PermanentFix          *string  `json:"permanent_fix"`
	IncidentLink          *string  `json:"incident_link"`
	ChangeRequestLink     *string  `json:"change_request_link"`
	KnowledgeLink         *string  `json:"knowledge_link"`
	RegionIDs             []string `json:"region_ids"`
	ApplicationIDs        []string `json:"application_ids"`
}

// UpdateTicketRequest payload; omitted fields are left unchanged.
type UpdateTicketRequest struct {
	Title                 *string `json:"title"`
	Description           *string `json:"description"`
	ImpactCount           *int    `json:"impact_count"`
	Priority              *int    `json:"priority"`
	TargetResolutionHours *int    `json:"target_resolution_hours"`
	AssignedTo            *string `json:"assigned_to"`
	AssignmentGroup       *string `json:"assignment_group"`
	RootCause             *string `json:"root_cause"`
	Workaround            *string `json:"workaround"`
	PermanentFix          *string `json:"permanent_fix"`
	IncidentLink          *string `json:"incident_link"`
	ChangeRequestLink     *string `json:"change_request_link"`
	KnowledgeLink         *string `json:"knowledge_link"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the full ticket projection.
type TicketResponse struct {
	ID                    string                `json:"id"`
	Title                 string                `json:"title"`
	Description           string                `json:"description"`
	CreatedBy             string                `json:"created_by"`
	Status                domain.TicketStatus   `json:"status"`
	Classification        domain.Classification `json:"classification"`
	RagStatus             domain.RagStatus      `json:"rag_status"`
	ImpactCount           *int                  `json:"impact_count"`
	Priority              *int                  `json:"priority"`
	PriorityScore         float64               `json:"priority_score"`
	TargetResolutionHours *int                  `json:"target_resolution_hours"`
	AssignedTo            *string               `json:"assigned_to"`
	AssignmentGroup       *string               `json:"assignment_group"`
	RootCause             *string               `json:"root_cause"`
	Workaround            *string               `json:"workaround"`
	PermanentFix          *string               `json:"permanent_fix"`
	IncidentLink          *string               `json:"incident_link"`
	ChangeRequestLink     *string               `json:"change_request_link"`
	KnowledgeLink         *string               `json:"knowledge_link"`
	RegionIDs             []string              `json:"region_ids"`
	ApplicationIDs        []string              `json:"application_ids"`
	TicketAgeDays         int                   `json:"ticket_age_days"`
	ResolvedAt            *time.Time            `json:"resolved_at"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// AuditEntryResponse is one ledger line.
type AuditEntryResponse struct {
	ID        int64              `json:"id"`
	Action    domain.AuditAction `json:"action"`
	Actor     string             `json:"actor"`
	FieldName *string            `json:"field_name,omitempty"`
	OldValue  *string            `json:"old_value,omitempty"`
	NewValue  *string            `json:"new_value,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// ArticleResponse describes the knowledge article of a resolved ticket.
type ArticleResponse struct {
	ID        string               `json:"id"`
	TicketID  string               `json:"ticket_id"`
	Title     string               `json:"title"`
	Content   string               `json:"content"`
	Status    domain.ArticleStatus `json:"status"`
	CreatedBy string               `json:"created_by"`
	CreatedAt time.Time            `json:"created_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// CommentResponse is a thread note.
type CommentResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
