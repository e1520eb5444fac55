// Package lifecycle holds the ticket status state machine. It is the
// single authority on status transitions and on which notification is
// owed for a given mutation; services persist whatever it decides.
package lifecycle

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UpdatePatch is a merge-patch over mutable ticket fields. Nil means
// "keep the current value".
type UpdatePatch struct {
	Title          *string
	Description    *string
	Category       *string
	Status         *domain.TicketStatus
	UserMarkedDone *bool
	HeadMarkedDone *bool
}

// Audience identifies who a notification event targets. Recipient
// resolution (which usernames that means) happens in the fan-out.
type Audience string

const (
	// AudienceCreator targets the ticket's creator.
	AudienceCreator Audience = "creator"
	// AudienceHeads targets every Head in the ticket's department.
	AudienceHeads Audience = "heads"
	// AudienceAll targets the creator and every department Head.
	AudienceAll Audience = "all"
)

// Event describes a single notification owed for a transition.
type Event struct {
	Type      domain.NotificationType
	Audience  Audience
	OldStatus *domain.TicketStatus
	NewStatus *domain.TicketStatus
}

// Outcome is the result of applying a patch to a ticket.
type Outcome struct {
	Ticket       domain.Ticket
	Changed      bool
	JustFinished bool
	Events       []Event
}

// Apply merges patch into current and computes the resulting status,
// confirmation flags and notification events. It never mutates current
// and performs no I/O.
//
// An explicit "In Progress" request is the head's accept action: it
// sets the status directly and bypasses all confirmation-flag logic.
// Otherwise the confirmation flags are merged from the patch; when both
// are true the ticket auto-finishes. An explicit reset to Pending wins
// over auto-finish and clears both flags. A requested Finished status
// is ignored: both confirmation flags are the only way there.
func Apply(current domain.Ticket, patch UpdatePatch, now time.Time) Outcome {
	next := current

	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}

	justFinished := false

	switch {
	case patch.Status != nil && *patch.Status == domain.TicketStatusInProgress:
		next.Status = domain.TicketStatusInProgress

	default:
		// Finished cannot be requested directly; it is only ever
		// reached through the two-flag auto-finish below.
		if patch.Status != nil && *patch.Status != domain.TicketStatusFinished {
			next.Status = *patch.Status
		}
		if patch.UserMarkedDone != nil {
			next.UserMarkedDone = *patch.UserMarkedDone
		}
		if patch.HeadMarkedDone != nil {
			next.HeadMarkedDone = *patch.HeadMarkedDone
		}

		if next.UserMarkedDone && next.HeadMarkedDone && current.Status != domain.TicketStatusFinished {
			next.Status = domain.TicketStatusFinished
			justFinished = true
		}

		if patch.Status != nil && *patch.Status == domain.TicketStatusPending && current.Status != domain.TicketStatusPending {
			next.Status = domain.TicketStatusPending
			next.UserMarkedDone = false
			next.HeadMarkedDone = false
			justFinished = false
		}
	}

	outcome := Outcome{
		Ticket:       next,
		Changed:      changed(current, next),
		JustFinished: justFinished,
	}
	if outcome.Changed {
		outcome.Ticket.UpdatedAt = now
	}
	if event := selectEvent(current, outcome.Ticket, justFinished); event != nil {
		outcome.Events = append(outcome.Events, *event)
	}
	return outcome
}

// selectEvent picks at most one notification branch, first match wins.
func selectEvent(old, new domain.Ticket, justFinished bool) *Event {
	switch {
	case justFinished:
		return &Event{
			Type:      domain.NotificationFinished,
			Audience:  AudienceAll,
			OldStatus: statusRef(old.Status),
			NewStatus: statusRef(new.Status),
		}
	case !old.HeadMarkedDone && new.HeadMarkedDone:
		return &Event{
			Type:     domain.NotificationConfirmPending,
			Audience: AudienceCreator,
		}
	case !old.UserMarkedDone && new.UserMarkedDone:
		return &Event{
			Type:     domain.NotificationConfirmPending,
			Audience: AudienceHeads,
		}
	case old.Status != domain.TicketStatusInProgress && new.Status == domain.TicketStatusInProgress:
		return &Event{
			Type:      domain.NotificationStatusChanged,
			Audience:  AudienceCreator,
			OldStatus: statusRef(old.Status),
			NewStatus: statusRef(new.Status),
		}
	case old.Status != domain.TicketStatusPending && new.Status == domain.TicketStatusPending:
		return &Event{
			Type:      domain.NotificationStatusChanged,
			Audience:  AudienceHeads,
			OldStatus: statusRef(old.Status),
			NewStatus: statusRef(new.Status),
		}
	}
	return nil
}

// CreationEvent is the fan-out owed when a ticket is filed.
func CreationEvent() Event {
	return Event{
		Type:     domain.NotificationNewTicket,
		Audience: AudienceHeads,
	}
}

// ReminderEvent is the fan-out owed for an explicit reminder nudge.
func ReminderEvent() Event {
	return Event{
		Type:     domain.NotificationReminder,
		Audience: AudienceHeads,
	}
}

func changed(old, new domain.Ticket) bool {
	return old.Title != new.Title ||
		old.Description != new.Description ||
		old.Category != new.Category ||
		old.Status != new.Status ||
		old.UserMarkedDone != new.UserMarkedDone ||
		old.HeadMarkedDone != new.HeadMarkedDone
}

func statusRef(s domain.TicketStatus) *domain.TicketStatus {
	return &s
}
