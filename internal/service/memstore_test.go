package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// memStore is an in-memory repository.Store used by service tests. It
// mirrors the constraints the SQL schema enforces: unique usernames,
// one Head per department, version-guarded ticket updates.
type memStore struct {
	accounts      map[string]*domain.Account
	tickets       map[string]*domain.Ticket
	notifications []*domain.Notification
	seq           int
	clock         time.Time

	// staleHeadCheck makes HeadExists report no head even when one is
	// present, reproducing the registration check-then-act race.
	staleHeadCheck bool

	// raceAfterRead runs once after the next ticket read, letting
	// tests interleave a concurrent writer between a service's read
	// and its version-guarded write.
	raceAfterRead func()
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*domain.Account),
		tickets:  make(map[string]*domain.Ticket),
		clock:    time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) Accounts() repository.AccountRepository           { return (*memAccounts)(m) }
func (m *memStore) Tickets() repository.TicketRepository             { return (*memTickets)(m) }
func (m *memStore) Notifications() repository.NotificationRepository { return (*memNotifications)(m) }

func (m *memStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(m)
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type memAccounts memStore

func (m *memAccounts) Create(ctx context.Context, account *domain.Account) error {
	if _, exists := m.accounts[account.Username]; exists {
		return uniqueViolation("accounts_username_key")
	}
	if account.Role == domain.RoleHead {
		for _, existing := range m.accounts {
			if existing.Department == account.Department && existing.Role == domain.RoleHead {
				return uniqueViolation(repository.HeadIndexConstraint)
			}
		}
	}
	account.ID = (*memStore)(m).nextID("acc")
	account.CreatedAt = (*memStore)(m).tick()
	stored := *account
	m.accounts[account.Username] = &stored
	return nil
}

func (m *memAccounts) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	account, ok := m.accounts[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (m *memAccounts) HeadExists(ctx context.Context, department string) (bool, error) {
	if m.staleHeadCheck {
		return false, nil
	}
	for _, account := range m.accounts {
		if account.Department == department && account.Role == domain.RoleHead {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) ListHeadsByDepartment(ctx context.Context, department string) ([]domain.Account, error) {
	var heads []domain.Account
	for _, account := range m.accounts {
		if account.Department == department && account.Role == domain.RoleHead {
			heads = append(heads, *account)
		}
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i].Username < heads[j].Username })
	return heads, nil
}

type memTickets memStore

func (m *memTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	ticket.ID = (*memStore)(m).nextID("tkt")
	ticket.Version = 1
	ticket.CreatedAt = (*memStore)(m).tick()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	m.tickets[ticket.ID] = &stored
	return nil
}

func (m *memTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	if hook := m.raceAfterRead; hook != nil {
		m.raceAfterRead = nil
		hook()
	}
	return &copied, nil
}

func (m *memTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	stored, ok := m.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = (*memStore)(m).tick()
	copied := *ticket
	m.tickets[ticket.ID] = &copied
	return nil
}

func (m *memTickets) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if filter.Department != nil && ticket.Department != *filter.Department {
			continue
		}
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return result, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memNotifications memStore

func (m *memNotifications) Create(ctx context.Context, notification *domain.Notification) error {
	notification.ID = (*memStore)(m).nextID("ntf")
	notification.CreatedAt = (*memStore)(m).tick()
	stored := *notification
	m.notifications = append(m.notifications, &stored)
	return nil
}

func (m *memNotifications) ListByRecipient(ctx context.Context, recipient string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var result []domain.Notification
	for _, n := range m.notifications {
		if n.Recipient == recipient {
			result = append(result, *n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id, recipient string) error {
	for _, n := range m.notifications {
		if n.ID == id && n.Recipient == recipient {
			n.Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memNotifications) CountUnread(ctx context.Context, recipient string) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.Recipient == recipient && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memNotifications) Delete(ctx context.Context, id string) error {
	for i, n := range m.notifications {
		if n.ID == id {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

// byType filters a recipient's notifications for assertions.
func (m *memStore) byType(recipient string, t domain.NotificationType) []*domain.Notification {
	var result []*domain.Notification
	for _, n := range m.notifications {
		if n.Recipient == recipient && n.Type == t {
			result = append(result, n)
		}
	}
	return result
}

func strRef(s string) *string { return &s }

func boolRef(b bool) *bool { return &b }

func stRef(s domain.TicketStatus) *domain.TicketStatus { return &s }

func describeNotifications(ns []*domain.Notification) string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, fmt.Sprintf("%s:%s", n.Recipient, n.Type))
	}
	return strings.Join(parts, ", ")
}
