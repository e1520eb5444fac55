package domain

import "time"

// NotificationType is the closed set of outbox entry kinds.
type NotificationType string

const (
	NotificationNewTicket      NotificationType = "new_ticket"
	NotificationStatusChanged  NotificationType = "status_update"
	NotificationConfirmPending NotificationType = "confirm_pending"
	NotificationFinished       NotificationType = "finished"
	NotificationReminder       NotificationType = "reminder"
)

// Notification is one per-recipient outbox row referencing a ticket.
// It carries structured fields rather than pre-formatted message text;
// the API layer renders display strings from them.
type Notification struct {
	ID        string
	Recipient string
	TicketID  string
	Type      NotificationType
	Actor     string
	OldStatus *TicketStatus
	NewStatus *TicketStatus
	Read      bool
	CreatedAt time.Time
}
