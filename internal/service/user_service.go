package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/service/auth"
	"github.com/phrazzld/jiralike-api/internal/store"
)

// UserService provides registration, login and user lookup.
type UserService interface {
	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// FindByEmail retrieves a user by their email address
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// SetSuperuser grants or revokes superuser rights
	SetSuperuser(ctx context.Context, userID uuid.UUID, superuser bool) error

	// Register creates a new user with the specified email, username and password
	Register(ctx context.Context, email, username, password string) (*domain.User, error)

	// Authenticate returns the user whose credentials match, or ErrInvalidCredentials
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// DeleteUser deletes a user by their ID. Their tasks, comments and files
	// remain with no owner.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	verifier  auth.PasswordVerifier
	tx        store.TxManager
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	verifier auth.PasswordVerifier,
	tx store.TxManager,
	logger *slog.Logger,
) UserService {
	if userStore == nil || verifier == nil || tx == nil {
		panic("user service dependencies cannot be nil") // ALLOW-PANIC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		verifier:  verifier,
		tx:        tx,
		logger:    logger.With("component", "user_service"),
	}
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("user not found", "user_id", userID)
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to retrieve user",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	return user, nil
}

// FindByEmail retrieves a user by their email address
func (s *UserServiceImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to retrieve user by email", "error", err)
		return nil, fmt.Errorf("failed to retrieve user by email: %w", err)
	}
	return user, nil
}

// SetSuperuser grants or revokes superuser rights
func (s *UserServiceImpl) SetSuperuser(ctx context.Context, userID uuid.UUID, superuser bool) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).SetSuperuser(ctx, userID, superuser)
	})
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("failed to update superuser flag",
			"error", err,
			"user_id", userID)
		return fmt.Errorf("failed to update superuser flag: %w", err)
	}

	s.logger.Info("superuser flag updated", "user_id", userID, "superuser", superuser)
	return nil
}

// Register creates a new user with the specified email, username and password
// Uses a transaction to ensure atomicity of the operation
func (s *UserServiceImpl) Register(
	ctx context.Context,
	email, username, password string,
) (*domain.User, error) {
	user, err := domain.NewUser(email, username, password)
	if err != nil {
		s.logger.Debug("invalid registration", "error", err)
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to register an existing email")
			return nil, ErrEmailTaken
		}
		s.logger.Error("failed to save user to database", "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate returns the user whose credentials match
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to retrieve user by email", "error", err)
		return nil, fmt.Errorf("failed to retrieve user by email: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// DeleteUser deletes a user by their ID
// Uses a transaction to ensure atomicity of the operation
func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Delete(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("attempted to delete non-existent user", "user_id", userID)
			return ErrUserNotFound
		}
		s.logger.Error("failed to delete user",
			"error", err,
			"user_id", userID)
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("user deleted", "user_id", userID)
	return nil
}
