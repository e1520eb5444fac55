package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const unreadCacheTTL = 30 * time.Second

// NotificationService owns the per-recipient outbox: fan-out of
// lifecycle events into rows, the polling feed, and read marks.
type NotificationService struct {
	store  repository.Store
	redis  *persistence.Redis
	logger *zap.Logger
}

// NewNotificationService creates the service. redis may be nil; the
// unread counter then always hits the store.
func NewNotificationService(store repository.Store, redis *persistence.Redis, logger *zap.Logger) *NotificationService {
	return &NotificationService{store: store, redis: redis, logger: logger}
}

// FanOut resolves the recipients of a lifecycle event and appends one
// outbox row per recipient through s, which is expected to be bound to
// the same transaction as the ticket write. Recipients are strictly
// department-scoped: a department without a Head gets no head
// notifications rather than falling back to heads system-wide.
func (n *NotificationService) FanOut(ctx context.Context, s repository.Store, ticket *domain.Ticket, actor string, event lifecycle.Event) ([]string, error) {
	recipients, err := n.resolveRecipients(ctx, s, ticket, event.Audience)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		n.logger.Warn("notification fan-out found no recipients",
			zap.String("ticket_id", ticket.ID),
			zap.String("department", ticket.Department),
			zap.String("type", string(event.Type)))
		return nil, nil
	}

	for _, recipient := range recipients {
		row := &domain.Notification{
			Recipient: recipient,
			TicketID:  ticket.ID,
			Type:      event.Type,
			Actor:     actor,
			OldStatus: event.OldStatus,
			NewStatus: event.NewStatus,
		}
		if err := s.Notifications().Create(ctx, row); err != nil {
			return nil, err
		}
	}
	return recipients, nil
}

func (n *NotificationService) resolveRecipients(ctx context.Context, s repository.Store, ticket *domain.Ticket, audience lifecycle.Audience) ([]string, error) {
	var recipients []string

	if audience == lifecycle.AudienceHeads || audience == lifecycle.AudienceAll {
		heads, err := s.Accounts().ListHeadsByDepartment(ctx, ticket.Department)
		if err != nil {
			return nil, err
		}
		for _, head := range heads {
			recipients = append(recipients, head.Username)
		}
	}
	if audience == lifecycle.AudienceCreator || audience == lifecycle.AudienceAll {
		recipients = appendUnique(recipients, ticket.CreatedBy)
	}
	return recipients, nil
}

// Feed returns the recipient's notifications, newest first.
func (n *NotificationService) Feed(ctx context.Context, recipient string, limit, offset int) ([]domain.Notification, error) {
	return n.store.Notifications().ListByRecipient(ctx, recipient, limit, offset)
}

// MarkRead flips one of the recipient's notifications to read and
// drops their cached unread count. Rows owned by someone else read as
// not found.
func (n *NotificationService) MarkRead(ctx context.Context, recipient, id string) error {
	if err := n.store.Notifications().MarkRead(ctx, id, recipient); err != nil {
		return err
	}
	n.InvalidateUnread(ctx, recipient)
	return nil
}

// UnreadCount returns the recipient's unread total, served from Redis
// when a fresh value is cached.
func (n *NotificationService) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	if client := n.redis.Handle(); client != nil {
		if cached, err := client.Get(ctx, unreadKey(recipient)).Result(); err == nil {
			if count, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				return count, nil
			}
		}
	}

	count, err := n.store.Notifications().CountUnread(ctx, recipient)
	if err != nil {
		return 0, err
	}
	if client := n.redis.Handle(); client != nil {
		if err := client.Set(ctx, unreadKey(recipient), count, unreadCacheTTL).Err(); err != nil {
			n.logger.Debug("unread cache set failed", zap.Error(err))
		}
	}
	return count, nil
}

// InvalidateUnread drops cached unread counts for the given recipients.
func (n *NotificationService) InvalidateUnread(ctx context.Context, recipients ...string) {
	client := n.redis.Handle()
	if client == nil || len(recipients) == 0 {
		return
	}
	keys := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		keys = append(keys, unreadKey(recipient))
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		n.logger.Debug("unread cache invalidation failed", zap.Error(err))
	}
}

func unreadKey(recipient string) string {
	return "notifications:unread:" + recipient
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
