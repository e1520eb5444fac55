package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload for filing a ticket.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// UpdateTicketRequest is a merge-patch: absent fields keep their
// current values.
type UpdateTicketRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Category       *string `json:"category"`
	Status         *string `json:"status"`
	UserMarkedDone *bool   `json:"userMarkedDone"`
	HeadMarkedDone *bool   `json:"headMarkedDone"`
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Category       string              `json:"category"`
	Status         domain.TicketStatus `json:"status"`
	CreatedBy      string              `json:"createdBy"`
	Department     string              `json:"dept"`
	UserMarkedDone bool                `json:"userMarkedDone"`
	HeadMarkedDone bool                `json:"headMarkedDone"`
	ReminderSent   bool                `json:"reminderSent"`
	LastRemindedAt *time.Time          `json:"lastRemindedAt,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TicketView maps a domain ticket.
func TicketView(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:             ticket.ID,
		Title:          ticket.Title,
		Description:    ticket.Description,
		Category:       ticket.Category,
		Status:         ticket.Status,
		CreatedBy:      ticket.CreatedBy,
		Department:     ticket.Department,
		UserMarkedDone: ticket.UserMarkedDone,
		HeadMarkedDone: ticket.HeadMarkedDone,
		ReminderSent:   ticket.ReminderSent,
		LastRemindedAt: ticket.LastRemindedAt,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}
