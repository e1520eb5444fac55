package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationRepository manages the per-recipient outbox.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, recipient string, limit, offset int) ([]domain.Notification, error)
	// MarkRead flips the read flag on the recipient's own row; a row
	// belonging to someone else is indistinguishable from a missing
	// one.
	MarkRead(ctx context.Context, id, recipient string) error
	CountUnread(ctx context.Context, recipient string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type notificationRepository struct {
	q Querier
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(q Querier) NotificationRepository {
	return &notificationRepository{q: q}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient, ticket_id, type, actor, old_status, new_status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, read, created_at`
	return r.q.QueryRow(ctx, query,
		notification.Recipient,
		notification.TicketID,
		notification.Type,
		notification.Actor,
		notification.OldStatus,
		notification.NewStatus,
	).Scan(&notification.ID, &notification.Read, &notification.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipient string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, recipient, ticket_id, type, actor, old_status, new_status, read, created_at
        FROM notifications WHERE recipient=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.q.Query(ctx, query, recipient, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.Recipient,
			&n.TicketID,
			&n.Type,
			&n.Actor,
			&n.OldStatus,
			&n.NewStatus,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipient string) error {
	const query = `UPDATE notifications SET read=TRUE WHERE id=$1 AND recipient=$2`
	cmd, err := r.q.Exec(ctx, query, id, recipient)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient=$1 AND read=FALSE`
	var count int64
	if err := r.q.QueryRow(ctx, query, recipient).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM notifications WHERE id=$1`
	cmd, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
