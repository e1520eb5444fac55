package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// DirectoryService coordinates registration and login.
type DirectoryService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// DirectoryDependencies bundles collaborators for the directory service.
type DirectoryDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewDirectoryService builds the service.
func NewDirectoryService(cfg config.Config, deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     deps.Logger,
	}
}

// Register creates a new account. The first registrant in a department
// becomes its Head, everyone after becomes a User. The store's unique
// head index arbitrates concurrent first registrations: the loser of
// the race is retried as a User instead of producing a second Head.
func (s *DirectoryService) Register(ctx context.Context, username, password, department string) (*domain.Account, string, time.Time, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	role := domain.RoleHead
	headExists, err := s.store.Accounts().HeadExists(ctx, department)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if headExists {
		role = domain.RoleUser
	}

	account := &domain.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Department:   department,
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		if repository.IsUniqueViolation(err, repository.HeadIndexConstraint) {
			account.Role = domain.RoleUser
			err = s.store.Accounts().Create(ctx, account)
		}
		if repository.IsUniqueViolation(err, "") {
			return nil, "", time.Time{}, apperrors.NewConflict("username already registered", nil)
		}
		if err != nil {
			return nil, "", time.Time{}, err
		}
	}

	token, exp, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.Event{
		Type:  events.EventAccountRegistered,
		Actor: account.Username,
		Payload: events.AccountRegisteredPayload{
			Username:   account.Username,
			Role:       account.Role,
			Department: account.Department,
		},
	})
	return account, token, exp, nil
}

// Login authenticates an account by exact username and password.
func (s *DirectoryService) Login(ctx context.Context, username, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.store.Accounts().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *DirectoryService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *DirectoryService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
