package dto

import (
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationResponse is the public view of an outbox entry. Message
// is rendered from the structured fields at response time.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	Recipient string                  `json:"recipient"`
	TicketID  string                  `json:"ticketId"`
	Type      domain.NotificationType `json:"type"`
	Actor     string                  `json:"actor"`
	Message   string                  `json:"message"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}

// NotificationView maps a domain notification and composes its display
// message.
func NotificationView(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Recipient: n.Recipient,
		TicketID:  n.TicketID,
		Type:      n.Type,
		Actor:     n.Actor,
		Message:   renderMessage(n),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func renderMessage(n *domain.Notification) string {
	switch n.Type {
	case domain.NotificationNewTicket:
		return fmt.Sprintf("%s filed a new ticket", n.Actor)
	case domain.NotificationConfirmPending:
		return fmt.Sprintf("%s marked the ticket as resolved, please confirm", n.Actor)
	case domain.NotificationFinished:
		return "Ticket has been finished"
	case domain.NotificationReminder:
		return fmt.Sprintf("%s sent a reminder about an open ticket", n.Actor)
	case domain.NotificationStatusChanged:
		if n.NewStatus != nil {
			switch *n.NewStatus {
			case domain.TicketStatusInProgress:
				return "Your ticket is now in progress"
			case domain.TicketStatusPending:
				return "Ticket was rejected and sent back to pending"
			}
			return fmt.Sprintf("Ticket status changed to %s", *n.NewStatus)
		}
	}
	return "Ticket updated"
}
