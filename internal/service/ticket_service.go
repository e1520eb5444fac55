package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService coordinates ticket workflows. Every mutation runs the
// lifecycle engine and persists the ticket together with its
// notification fan-out in a single transaction.
type TicketService struct {
	store         repository.Store
	notifications *NotificationService
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store         repository.Store
	Notifications *NotificationService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    string
}

// TicketListQuery describes listing filters.
type TicketListQuery struct {
	Role       domain.Role
	Department string
	Username   string
	Statuses   []domain.TicketStatus
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:         deps.Store,
		notifications: deps.Notifications,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// CreateTicket files a new ticket for the creator. Status is always
// Pending regardless of the payload, and department heads are notified.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.Account, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = domain.DefaultTicketCategory
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Category:    category,
		Status:      domain.TicketStatusPending,
		CreatedBy:   creator.Username,
		Department:  creator.Department,
	}

	var recipients []string
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		var fanErr error
		recipients, fanErr = s.notifications.FanOut(ctx, tx, ticket, creator.Username, lifecycle.CreationEvent())
		return fanErr
	})
	if err != nil {
		return nil, err
	}

	s.notifications.InvalidateUnread(ctx, recipients...)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    creator.Username,
		Payload: events.TicketCreatedPayload{
			Department: ticket.Department,
			Category:   ticket.Category,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets scoped by role: heads see their whole
// department, users see their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, query TicketListQuery) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		Statuses: query.Statuses,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	if query.Role == domain.RoleHead {
		dept := query.Department
		filter.Department = &dept
	} else {
		username := query.Username
		filter.CreatedBy = &username
	}
	return s.store.Tickets().ListWithFilter(ctx, filter)
}

// GetTicket fetches one ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket applies a merge-patch through the lifecycle engine and
// persists the outcome plus its fan-out atomically. A concurrent
// update on the same ticket surfaces as a conflict instead of a lost
// write.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.Account, id string, patch lifecycle.UpdatePatch) (*domain.Ticket, error) {
	if patch.Status != nil {
		if !domain.ValidTicketStatus(*patch.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(*patch.Status)})
		}
		if *patch.Status == domain.TicketStatusFinished {
			return nil, apperrors.NewValidationError("Finished requires both confirmations and cannot be set directly", nil)
		}
	}

	var (
		updated    *domain.Ticket
		recipients []string
		outcome    lifecycle.Outcome
		oldStatus  domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Tickets().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canMutate(actor, current) {
			return apperrors.NewForbidden("not the creator or a department head")
		}

		oldStatus = current.Status
		outcome = lifecycle.Apply(*current, patch, time.Now())
		if !outcome.Changed {
			updated = current
			return nil
		}

		next := outcome.Ticket
		if err := tx.Tickets().Update(ctx, &next); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return apperrors.NewConflict("ticket was modified concurrently, reload and retry", nil)
			}
			return err
		}
		updated = &next

		for _, event := range outcome.Events {
			sent, err := s.notifications.FanOut(ctx, tx, updated, actor.Username, event)
			if err != nil {
				return err
			}
			recipients = append(recipients, sent...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Changed {
		s.notifications.InvalidateUnread(ctx, recipients...)
		s.publish(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: updated.ID,
			Actor:    actor.Username,
			Payload: events.TicketUpdatedPayload{
				OldStatus:     oldStatus,
				NewStatus:     updated.Status,
				JustFinished:  outcome.JustFinished,
				Notifications: len(recipients),
			},
		})
	}
	return updated, nil
}

// RemindTicket records a reminder nudge from the creator and notifies
// the department heads.
func (s *TicketService) RemindTicket(ctx context.Context, actor *domain.Account, id string) (*domain.Ticket, error) {
	var (
		updated    *domain.Ticket
		recipients []string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Tickets().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.CreatedBy != actor.Username {
			return apperrors.NewForbidden("only the ticket creator can send reminders")
		}

		now := time.Now()
		current.ReminderSent = true
		current.LastRemindedAt = &now
		if err := tx.Tickets().Update(ctx, current); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return apperrors.NewConflict("ticket was modified concurrently, reload and retry", nil)
			}
			return err
		}
		updated = current

		recipients, err = s.notifications.FanOut(ctx, tx, updated, actor.Username, lifecycle.ReminderEvent())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifications.InvalidateUnread(ctx, recipients...)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketReminded,
		TicketID: updated.ID,
		Actor:    actor.Username,
		Payload: events.TicketRemindedPayload{
			Department: updated.Department,
			Recipients: len(recipients),
		},
	})
	return updated, nil
}

// canMutate allows the ticket creator and heads of the ticket's
// department.
func canMutate(actor *domain.Account, ticket *domain.Ticket) bool {
	if actor == nil {
		return false
	}
	if actor.Username == ticket.CreatedBy {
		return true
	}
	return actor.IsHead() && actor.Department == ticket.Department
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
