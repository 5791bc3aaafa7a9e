package membership

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/teamtasker/teamtasker/internal/authz"
	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
	"github.com/teamtasker/teamtasker/internal/service/events"
)

// Service mutates team membership: enrollment, manager promotion and
// ownership transfer. Every operation loads the team fresh under the
// repository's row lock and enforces its preconditions in a fixed order:
// authorization, target existence, membership state, idempotency guard.
type Service struct {
	teams  repository.TeamRepository
	users  repository.UserRepository
	pub    events.Publisher
	logger *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, users repository.UserRepository, pub events.Publisher, logger *slog.Logger) Service {
	return Service{teams: teams, users: users, pub: pub, logger: logger}
}

// AddMember enrolls the named user as a plain member. Requires management
// access.
func (s Service) AddMember(ctx context.Context, teamID, username string, acting *domain.User) (*domain.Team, error) {
	return s.mutate(ctx, teamID, username, acting, domain.TeamEventMemberAdded,
		s.requireManagement(teamID, acting),
		func(t *domain.Team, targetID string) error { return t.AddMember(targetID) })
}

// RemoveMember drops the named user from the team, revoking manager rights
// alongside. The owner cannot be removed. Requires management access.
func (s Service) RemoveMember(ctx context.Context, teamID, username string, acting *domain.User) (*domain.Team, error) {
	return s.mutate(ctx, teamID, username, acting, domain.TeamEventMemberRemoved,
		s.requireManagement(teamID, acting),
		func(t *domain.Team, targetID string) error { return t.RemoveMember(targetID) })
}

// PromoteToManager grants manager rights to an existing member. Reserved for
// the owner or a global admin; a manager may not appoint peers.
func (s Service) PromoteToManager(ctx context.Context, teamID, username string, acting *domain.User) (*domain.Team, error) {
	return s.mutate(ctx, teamID, username, acting, domain.TeamEventManagerPromoted,
		s.requireOwnerOrAdmin(teamID, acting),
		func(t *domain.Team, targetID string) error { return t.Promote(targetID) })
}

// DemoteFromManager revokes manager rights, leaving the user a plain member.
// The owner cannot be demoted. Reserved for the owner or a global admin.
func (s Service) DemoteFromManager(ctx context.Context, teamID, username string, acting *domain.User) (*domain.Team, error) {
	return s.mutate(ctx, teamID, username, acting, domain.TeamEventManagerDemoted,
		s.requireOwnerOrAdmin(teamID, acting),
		func(t *domain.Team, targetID string) error { return t.Demote(targetID) })
}

// TransferOwnership makes the named member the owner. The previous owner
// remains enrolled as a manager until separately demoted or removed.
// Reserved for the owner or a global admin.
func (s Service) TransferOwnership(ctx context.Context, teamID, newOwnerUsername string, acting *domain.User) (*domain.Team, error) {
	return s.mutate(ctx, teamID, newOwnerUsername, acting, domain.TeamEventOwnershipTransferred,
		s.requireOwnerOrAdmin(teamID, acting),
		func(t *domain.Team, targetID string) error { return t.TransferOwnership(targetID) })
}

func (s Service) requireManagement(teamID string, acting *domain.User) func(*domain.Team) error {
	return func(t *domain.Team) error {
		if !authz.CanManage(t, acting) {
			return fmt.Errorf("team %s: %w", teamID, domain.ErrNoManagementAccess)
		}
		return nil
	}
}

func (s Service) requireOwnerOrAdmin(teamID string, acting *domain.User) func(*domain.Team) error {
	return func(t *domain.Team) error {
		if !authz.IsOwnerOrAdmin(t, acting) {
			return fmt.Errorf("team %s: %w", teamID, domain.ErrNotOwnerOrAdmin)
		}
		return nil
	}
}

// mutate resolves the target user, then applies authorize and action to the
// locked aggregate. Authorization is evaluated against the freshest team
// state and takes precedence over a target lookup miss. Any error aborts the
// transaction with nothing persisted.
func (s Service) mutate(ctx context.Context, teamID, username string, acting *domain.User, eventType string, authorize func(*domain.Team) error, action func(*domain.Team, string) error) (*domain.Team, error) {
	target, err := s.userByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	lookupErr := err

	team, err := s.teams.UpdateTeam(ctx, teamID, func(t *domain.Team) error {
		if err := authorize(t); err != nil {
			return err
		}
		if target == nil {
			return lookupErr
		}
		return action(t, target.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("team %s: %w", teamID, domain.ErrTeamNotFound)
		}
		return nil, err
	}

	s.pub.Publish(domain.TeamEvent{Type: eventType, TeamID: team.ID, ActorID: acting.ID, SubjectID: target.ID})
	s.logger.Info("team membership changed", "event", eventType, "team_id", team.ID, "actor_id", acting.ID, "subject_id", target.ID)
	return team, nil
}

func (s Service) userByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrUserNotFound)
		}
		return nil, err
	}
	return user, nil
}
