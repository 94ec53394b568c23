package domain

import (
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:                 {TicketStatusAssigned, TicketStatusRejected, TicketStatusClosed},
	TicketStatusAssigned:            {TicketStatusInProgress, TicketStatusRejected, TicketStatusClosed},
	TicketStatusInProgress:          {TicketStatusRootCauseIdentified},
	TicketStatusRootCauseIdentified: {TicketStatusFixInProgress},
	TicketStatusFixInProgress:       {TicketStatusResolved},
	TicketStatusResolved:            {TicketStatusClosed},
	TicketStatusClosed:              {},
	TicketStatusRejected:            {},
	TicketStatusArchived:            {},
}

// ValidateTransition returns an INVALID_TRANSITION error unless from -> to is a lifecycle edge.
func ValidateTransition(from, to TicketStatus) error {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return nil
		}
	}
	return apperrors.NewInvalidTransition(string(from), string(to))
}

// AllowedTargets lists the statuses reachable from the given one.
func AllowedTargets(from TicketStatus) []TicketStatus {
	return append([]TicketStatus(nil), allowedTransitions[from]...)
}

// IsTerminal reports whether a status has no outgoing edges.
func IsTerminal(status TicketStatus) bool {
	return len(allowedTransitions[status]) == 0
}
