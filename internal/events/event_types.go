package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventTicketCreated     EventType = "ticket_created"
	EventTicketUpdated     EventType = "ticket_updated"
	EventTicketReminded    EventType = "ticket_reminded"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	Username   string      `json:"username"`
	Role       domain.Role `json:"role"`
	Department string      `json:"department"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Department string `json:"department"`
	Category   string `json:"category"`
	Title      string `json:"title"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	JustFinished  bool                `json:"just_finished"`
	Notifications int                 `json:"notifications"`
}

// TicketRemindedPayload payload.
type TicketRemindedPayload struct {
	Department string `json:"department"`
	Recipients int    `json:"recipients"`
}
