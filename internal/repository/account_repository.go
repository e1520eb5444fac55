package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// HeadIndexConstraint names the partial unique index that guarantees at
// most one Head per department.
const HeadIndexConstraint = "accounts_one_head_per_department"

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	HeadExists(ctx context.Context, department string) (bool, error)
	ListHeadsByDepartment(ctx context.Context, department string) ([]domain.Account, error)
}

type accountRepository struct {
	q Querier
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(q Querier) AccountRepository {
	return &accountRepository{q: q}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (username, password_hash, role, department)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	return r.q.QueryRow(ctx, query,
		account.Username,
		account.PasswordHash,
		account.Role,
		account.Department,
	).Scan(&account.ID, &account.CreatedAt)
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `
        SELECT id, username, password_hash, role, department, created_at
        FROM accounts WHERE username=$1`

	var account domain.Account
	if err := r.q.QueryRow(ctx, query, username).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.Role,
		&account.Department,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) HeadExists(ctx context.Context, department string) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM accounts WHERE department=$1 AND role=$2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, department, domain.RoleHead).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *accountRepository) ListHeadsByDepartment(ctx context.Context, department string) ([]domain.Account, error) {
	const query = `
        SELECT id, username, password_hash, role, department, created_at
        FROM accounts WHERE department=$1 AND role=$2
        ORDER BY created_at`

	rows, err := r.q.Query(ctx, query, department, domain.RoleHead)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.PasswordHash,
			&account.Role,
			&account.Department,
			&account.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}
