package services

import (
	"context"
	"database/sql"
	"errors"

	"quizhub/internal/config"
	"quizhub/internal/models"
	"quizhub/internal/observability"
	contextutils "quizhub/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines user account operations
type UserServiceInterface interface {
	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastActive(ctx context.Context, userID int) error
	EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) error
}

// UserService handles user accounts and authentication
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewUserService creates a new user service
func NewUserService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateUser registers a new user with a bcrypt-hashed password
func (s *UserService) CreateUser(ctx context.Context, username, email, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "CreateUser",
		attribute.String("username", username),
	)
	defer observability.FinishSpan(span, &err)

	if username == "" || password == "" {
		return nil, contextutils.ErrMissingRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	query := `
		INSERT INTO users (username, email, password_hash, last_active)
		VALUES ($1, NULLIF($2, ''), $3, NOW())
		RETURNING id, username, email, password_hash, last_active, created_at, updated_at`

	var user models.User
	err = s.db.QueryRowContext(ctx, query, username, email, string(hash)).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.LastActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, contextutils.ErrRecordExists
		}
		return nil, contextutils.WrapError(err, "failed to create user")
	}

	s.logger.Info(ctx, "User created", map[string]interface{}{"user_id": user.ID, "username": username})
	return &user, nil
}

// AuthenticateUser verifies a username and password pair
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "AuthenticateUser",
		attribute.String("username", username),
	)
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.PasswordHash.Valid {
		return nil, contextutils.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return nil, contextutils.ErrInvalidCredentials
	}

	if err := s.UpdateLastActive(ctx, user.ID); err != nil {
		// Non-fatal, login still succeeds
		s.logger.Warn(ctx, "Failed to update last active", map[string]interface{}{"user_id": user.ID})
	}

	return user, nil
}

// GetUserByID returns the user with the given ID
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByID",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT id, username, email, password_hash, last_active, created_at, updated_at
		FROM users
		WHERE id = $1`

	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername returns the user with the given username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByUsername",
		attribute.String("username", username),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT id, username, email, password_hash, last_active, created_at, updated_at
		FROM users
		WHERE username = $1`

	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

// scanUser scans a single user row, mapping sql.ErrNoRows to ErrRecordNotFound
func (s *UserService) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.LastActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrRecordNotFound
		}
		return nil, contextutils.WrapError(err, "failed to scan user")
	}
	return &user, nil
}

// EnsureAdminUserExists creates the configured admin account on startup if
// it is missing, or rotates its password hash when the configured password
// has changed. Safe to run on every boot and across concurrent instances.
func (s *UserService) EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "EnsureAdminUserExists",
		attribute.String("username", adminUsername),
	)
	defer observability.FinishSpan(span, &err)

	if adminUsername == "" {
		return contextutils.ErrorWithContextf("admin username cannot be empty")
	}
	if adminPassword == "" {
		return contextutils.ErrorWithContextf("admin password cannot be empty")
	}

	existing, err := s.GetUserByUsername(ctx, adminUsername)
	if err != nil && !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
		return contextutils.WrapError(err, "failed to look up admin user")
	}

	if existing != nil {
		if existing.PasswordHash.Valid &&
			bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash.String), []byte(adminPassword)) == nil {
			return nil
		}

		hash, hashErr := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			return contextutils.WrapError(hashErr, "failed to hash admin password")
		}
		_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, string(hash), existing.ID)
		if err != nil {
			return contextutils.WrapError(err, "failed to update admin password")
		}
		s.logger.Info(ctx, "Admin password updated", map[string]interface{}{"user_id": existing.ID})
		return nil
	}

	user, err := s.CreateUser(ctx, adminUsername, "", adminPassword)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordExists) {
			// Another instance created the admin between our lookup and insert
			return nil
		}
		return contextutils.WrapError(err, "failed to create admin user")
	}

	s.logger.Info(ctx, "Admin user created", map[string]interface{}{"user_id": user.ID, "username": adminUsername})
	return nil
}

// UpdateLastActive records the user's last activity timestamp
func (s *UserService) UpdateLastActive(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateLastActive",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx, `UPDATE users SET last_active = NOW(), updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update last active")
	}
	return nil
}
