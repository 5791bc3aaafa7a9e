package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
)

// Service covers profile maintenance and the admin-only account operations.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger) Service {
	return Service{users: users, logger: logger}
}

// GetByID loads a user.
func (s Service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupErr(err, id)
	}
	return user, nil
}

// GetByUsername loads a user by username.
func (s Service) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, s.mapLookupErr(err, username)
	}
	return user, nil
}

// GetByEmail loads a user by email.
func (s Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, s.mapLookupErr(err, email)
	}
	return user, nil
}

// List returns a page of all users.
func (s Service) List(ctx context.Context, page repository.Page) ([]domain.User, error) {
	return s.users.ListUsers(ctx, page)
}

// Search matches users by first name, last name, username or full name. A
// blank term yields no results.
func (s Service) Search(ctx context.Context, term string, page repository.Page) ([]domain.User, error) {
	if strings.TrimSpace(term) == "" {
		return []domain.User{}, nil
	}
	return s.users.SearchUsers(ctx, term, page)
}

// ListByRole returns users holding the given global role.
func (s Service) ListByRole(ctx context.Context, role domain.Role, page repository.Page) ([]domain.User, error) {
	return s.users.ListUsersByRole(ctx, role, page)
}

// ListNotInTeam returns enrollment candidates for a team.
func (s Service) ListNotInTeam(ctx context.Context, teamID string, page repository.Page) ([]domain.User, error) {
	return s.users.ListUsersNotInTeam(ctx, teamID, page)
}

// UpdateProfile overwrites first name, last name and email.
func (s Service) UpdateProfile(ctx context.Context, userID, firstName, lastName, email string) (*domain.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(firstName)
	user.LastName = strings.TrimSpace(lastName)
	user.Email = strings.TrimSpace(email)
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("email %q: %w", user.Email, domain.ErrEmailTaken)
		}
		return nil, err
	}
	s.logger.Info("profile updated", "user_id", userID)
	return user, nil
}

// UpdateRole changes a user's global role. Only admins may do this.
func (s Service) UpdateRole(ctx context.Context, userID string, role domain.Role, acting *domain.User) (*domain.User, error) {
	if acting == nil || !acting.IsAdmin() {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotOwnerOrAdmin)
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("role updated", "user_id", userID, "role", role, "actor_id", acting.ID)
	return user, nil
}

// Delete removes an account. Only admins may delete other accounts; anyone
// may delete their own.
func (s Service) Delete(ctx context.Context, userID string, acting *domain.User) error {
	if acting == nil || (acting.ID != userID && !acting.IsAdmin()) {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotOwnerOrAdmin)
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return s.mapLookupErr(err, userID)
	}
	s.logger.Info("user deleted", "user_id", userID, "actor_id", acting.ID)
	return nil
}

// CountsByRole reports how many users hold each role.
func (s Service) CountsByRole(ctx context.Context) (map[domain.Role]int64, error) {
	counts := make(map[domain.Role]int64, 3)
	for _, role := range []domain.Role{domain.RoleUser, domain.RoleManager, domain.RoleAdmin} {
		count, err := s.users.CountUsersByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		counts[role] = count
	}
	return counts, nil
}

func (s Service) mapLookupErr(err error, key string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("user %q: %w", key, domain.ErrUserNotFound)
	}
	return err
}
