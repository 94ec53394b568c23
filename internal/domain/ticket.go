package domain

import (
	"strings"
	"time"

	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

// TicketStatus enumerates lifecycle states for problem tickets.
type TicketStatus string

const (
	TicketStatusNew                 TicketStatus = "NEW"
	TicketStatusAssigned            TicketStatus = "ASSIGNED"
	TicketStatusInProgress          TicketStatus = "IN_PROGRESS"
	TicketStatusRootCauseIdentified TicketStatus = "ROOT_CAUSE_IDENTIFIED"
	TicketStatusFixInProgress       TicketStatus = "FIX_IN_PROGRESS"
	TicketStatusResolved            TicketStatus = "RESOLVED"
	TicketStatusClosed              TicketStatus = "CLOSED"
	TicketStatusRejected            TicketStatus = "REJECTED"
	TicketStatusArchived            TicketStatus = "ARCHIVED"
)

// AllTicketStatuses lists every status in lifecycle order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusRootCauseIdentified,
	TicketStatusFixInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusRejected,
	TicketStatusArchived,
}

// ParseTicketStatus maps free text onto a TicketStatus.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	candidate := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, status := range AllTicketStatuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", apperrors.NewValidationError("unknown ticket status", map[string]any{"status": raw})
}

// Classification is the age-derived escalation tier.
type Classification string

const (
	ClassificationA Classification = "A"
	ClassificationR Classification = "R"
	ClassificationP Classification = "P"
)

// ParseClassification maps free text onto a Classification.
func ParseClassification(raw string) (Classification, error) {
	switch c := Classification(strings.ToUpper(strings.TrimSpace(raw))); c {
	case ClassificationA, ClassificationR, ClassificationP:
		return c, nil
	}
	return "", apperrors.NewValidationError("unknown classification", map[string]any{"classification": raw})
}

// RagStatus is the display indicator shown on reports.
type RagStatus string

const (
	RagGreen RagStatus = "GREEN"
	RagAmber RagStatus = "AMBER"
	RagRed   RagStatus = "RED"
	RagDone  RagStatus = "DONE"
)

// Ticket is the aggregate for problem records.
type Ticket struct {
	ID                    string
	Title                 string
	Description           string
	CreatedBy             string
	Status                TicketStatus
	Classification        Classification
	RagStatus             RagStatus
	ImpactCount           *int
	Priority              *int
	PriorityScore         float64
	TargetResolutionHours *int
	AssignedTo            *string
	AssignmentGroup       *string
	RootCause             *string
	Workaround            *string
	PermanentFix          *string
	IncidentLink          *string
	ChangeRequestLink     *string
	KnowledgeLink         *string
	RegionIDs             []string
	ApplicationIDs        []string
	TicketAgeDays         int
	ResolvedAt            *time.Time
	Deleted               bool
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsOpen reports whether the scheduler still ages and classifies the ticket.
func (t *Ticket) IsOpen() bool {
	switch t.Status {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusRejected:
		return false
	}
	return true
}

// Clone returns a deep copy so callers never share pointer fields.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.ImpactCount = cloneInt(t.ImpactCount)
	cp.Priority = cloneInt(t.Priority)
	cp.TargetResolutionHours = cloneInt(t.TargetResolutionHours)
	cp.AssignedTo = cloneString(t.AssignedTo)
	cp.AssignmentGroup = cloneString(t.AssignmentGroup)
	cp.RootCause = cloneString(t.RootCause)
	cp.Workaround = cloneString(t.Workaround)
	cp.PermanentFix = cloneString(t.PermanentFix)
	cp.IncidentLink = cloneString(t.IncidentLink)
	cp.ChangeRequestLink = cloneString(t.ChangeRequestLink)
	cp.KnowledgeLink = cloneString(t.KnowledgeLink)
	cp.RegionIDs = append([]string(nil), t.RegionIDs...)
	cp.ApplicationIDs = append([]string(nil), t.ApplicationIDs...)
	if t.ResolvedAt != nil {
		resolved := *t.ResolvedAt
		cp.ResolvedAt = &resolved
	}
	return &cp
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
