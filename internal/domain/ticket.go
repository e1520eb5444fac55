package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusFinished   TicketStatus = "Finished"
)

// ValidTicketStatus reports whether s is one of the known states.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusFinished:
		return true
	}
	return false
}

// DefaultTicketCategory is applied when a ticket is filed without one.
const DefaultTicketCategory = "General"

// Ticket is the aggregate for support requests. Finished is reachable
// only after both the creator and the department head set their
// confirmation flag; a reset back to Pending clears both flags.
type Ticket struct {
	ID             string
	Title          string
	Description    string
	Category       string
	Status         TicketStatus
	CreatedBy      string
	Department     string
	UserMarkedDone bool
	HeadMarkedDone bool
	ReminderSent   bool
	LastRemindedAt *time.Time
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
