package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
	"github.com/teamtasker/teamtasker/pkg/config"
	"github.com/teamtasker/teamtasker/pkg/crypto"
	jwtpkg "github.com/teamtasker/teamtasker/pkg/jwt"
)

const passwordMinLen = 8

// Service handles registration, authentication and credential changes.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// Registration carries the fields submitted at sign-up.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Register creates an account with the USER role. Username and email
// duplicates are pre-checked for precise errors; the unique indexes remain
// the authoritative guard and their violation maps to the same kinds.
func (s Service) Register(ctx context.Context, reg Registration) (*domain.User, error) {
	return s.register(ctx, reg, domain.RoleUser)
}

func (s Service) register(ctx context.Context, reg Registration, role domain.Role) (*domain.User, error) {
	if len(reg.Password) < passwordMinLen {
		return nil, fmt.Errorf("password: %w", domain.ErrValidation)
	}
	user := &domain.User{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
		Email:     strings.TrimSpace(reg.Email),
		Username:  strings.TrimSpace(reg.Username),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if taken, err := s.usernameTaken(ctx, user.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("username %q: %w", user.Username, domain.ErrUsernameTaken)
	}
	if taken, err := s.emailTaken(ctx, user.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("email %q: %w", user.Email, domain.ErrEmailTaken)
	}

	hash, err := crypto.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			if strings.Contains(err.Error(), "email") {
				return nil, fmt.Errorf("email %q: %w", user.Email, domain.ErrEmailTaken)
			}
			return nil, fmt.Errorf("username %q: %w", user.Username, domain.ErrUsernameTaken)
		}
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// Login verifies credentials and issues tokens.
func (s Service) Login(ctx context.Context, username, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, fmt.Errorf("user %q: %w", username, domain.ErrInvalidCredential)
		}
		return nil, TokenPair{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, fmt.Errorf("user %q: %w", username, domain.ErrInvalidCredential)
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Authorize validates a bearer token and returns the acting user.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, fmt.Errorf("empty token: %w", domain.ErrInvalidCredential)
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", claims.UserID, domain.ErrUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the user's password after verifying the current
// one.
func (s Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < passwordMinLen {
		return fmt.Errorf("password: %w", domain.ErrValidation)
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
		}
		return err
	}
	if err := crypto.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return fmt.Errorf("user %s: %w", userID, domain.ErrInvalidCredential)
	}
	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist.
// Called once at startup with credentials from configuration.
func (s Service) EnsureAdmin(ctx context.Context) error {
	if s.cfg.AdminUsername == "" || s.cfg.AdminPassword == "" {
		return nil
	}
	taken, err := s.usernameTaken(ctx, s.cfg.AdminUsername)
	if err != nil {
		return err
	}
	if taken {
		return nil
	}
	_, err = s.register(ctx, Registration{
		FirstName: "Admin",
		LastName:  "User",
		Email:     s.cfg.AdminEmail,
		Username:  s.cfg.AdminUsername,
		Password:  s.cfg.AdminPassword,
	}, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Info("bootstrap admin created", "username", s.cfg.AdminUsername)
	return nil
}

func (s Service) issueTokens(user *domain.User) (TokenPair, error) {
	access, err := jwtpkg.Generate(user.ID, user.Username, string(user.Role), s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := jwtpkg.Generate(user.ID, user.Username, string(user.Role), s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s Service) usernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s Service) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
