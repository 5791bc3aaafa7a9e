package team

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/teamtasker/teamtasker/internal/authz"
	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
	"github.com/teamtasker/teamtasker/internal/service/events"
)

// Service orchestrates the team lifecycle: creation, metadata updates,
// activation state and deletion, all gated by the authorization policy.
type Service struct {
	teams  repository.TeamRepository
	pub    events.Publisher
	logger *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, pub events.Publisher, logger *slog.Logger) Service {
	return Service{teams: teams, pub: pub, logger: logger}
}

// Create registers a team owned by the acting user. The name pre-check is
// advisory under concurrent creators; the unique index on teams.name is the
// authoritative guard and its violation maps to the same conflict kind.
func (s Service) Create(ctx context.Context, name, description string, owner *domain.User) (*domain.Team, error) {
	taken, err := s.nameTaken(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("team %q: %w", name, domain.ErrNameConflict)
	}
	team, err := domain.NewTeam(uuid.NewString(), name, description, owner.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("team %q: %w", name, domain.ErrNameConflict)
		}
		return nil, err
	}
	s.pub.Publish(domain.TeamEvent{Type: domain.TeamEventCreated, TeamID: team.ID, ActorID: owner.ID})
	s.logger.Info("team created", "team_id", team.ID, "owner_id", owner.ID)
	return team, nil
}

// GetByID loads a team.
func (s Service) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	team, err := s.teams.GetTeamByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("team %s: %w", id, domain.ErrTeamNotFound)
		}
		return nil, err
	}
	return team, nil
}

// GetByName loads a team by exact name.
func (s Service) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	team, err := s.teams.GetTeamByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("team %q: %w", name, domain.ErrTeamNotFound)
		}
		return nil, err
	}
	return team, nil
}

// View loads a team for display, enforcing view access.
func (s Service) View(ctx context.Context, id string, acting *domain.User) (*domain.Team, error) {
	team, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(team, acting) {
		return nil, fmt.Errorf("team %s: %w", id, domain.ErrNoViewAccess)
	}
	return team, nil
}

// Update changes name and/or description. A nil pointer leaves the field
// unchanged; an empty description is a valid explicit value. Either every
// validation passes or nothing is persisted.
func (s Service) Update(ctx context.Context, id string, newName, newDescription *string, acting *domain.User) (*domain.Team, error) {
	team, err := s.updateTeam(ctx, id, func(t *domain.Team) error {
		if !authz.CanManage(t, acting) {
			return fmt.Errorf("team %s: %w", id, domain.ErrNoManagementAccess)
		}
		if newName != nil && *newName != t.Name {
			taken, err := s.nameTaken(ctx, *newName)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("team %q: %w", *newName, domain.ErrNameConflict)
			}
			if err := t.Rename(*newName); err != nil {
				return err
			}
		}
		if newDescription != nil {
			if err := t.SetDescription(*newDescription); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) && newName != nil {
			return nil, fmt.Errorf("team %q: %w", *newName, domain.ErrNameConflict)
		}
		return nil, err
	}
	s.pub.Publish(domain.TeamEvent{Type: domain.TeamEventUpdated, TeamID: team.ID, ActorID: acting.ID})
	return team, nil
}

// Delete irreversibly removes the team and its membership edges. Reserved
// for the owner or a global admin.
func (s Service) Delete(ctx context.Context, id string, acting *domain.User) error {
	team, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.IsOwnerOrAdmin(team, acting) {
		return fmt.Errorf("team %s: %w", id, domain.ErrNotOwnerOrAdmin)
	}
	if err := s.teams.DeleteTeam(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("team %s: %w", id, domain.ErrTeamNotFound)
		}
		return err
	}
	s.logger.Info("team deleted", "team_id", id, "actor_id", acting.ID)
	return nil
}

// Deactivate soft-disables the team. Setting the same state twice is not an
// error.
func (s Service) Deactivate(ctx context.Context, id string, acting *domain.User) (*domain.Team, error) {
	return s.setActive(ctx, id, false, acting)
}

// Reactivate re-enables a deactivated team.
func (s Service) Reactivate(ctx context.Context, id string, acting *domain.User) (*domain.Team, error) {
	return s.setActive(ctx, id, true, acting)
}

func (s Service) setActive(ctx context.Context, id string, active bool, acting *domain.User) (*domain.Team, error) {
	team, err := s.updateTeam(ctx, id, func(t *domain.Team) error {
		if !authz.CanManage(t, acting) {
			return fmt.Errorf("team %s: %w", id, domain.ErrNoManagementAccess)
		}
		t.IsActive = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	eventType := domain.TeamEventDeactivated
	if active {
		eventType = domain.TeamEventReactivated
	}
	s.pub.Publish(domain.TeamEvent{Type: eventType, TeamID: team.ID, ActorID: acting.ID})
	return team, nil
}

// ListActive returns active teams, newest first.
func (s Service) ListActive(ctx context.Context, page repository.Page) ([]domain.Team, error) {
	return s.teams.ListTeams(ctx, repository.TeamFilter{ActiveOnly: true}, page)
}

// ListInactive returns deactivated teams.
func (s Service) ListInactive(ctx context.Context, page repository.Page) ([]domain.Team, error) {
	return s.teams.ListTeams(ctx, repository.TeamFilter{InactiveOnly: true}, page)
}

// Search matches active teams whose name contains the term,
// case-insensitively. A blank term yields no results.
func (s Service) Search(ctx context.Context, term string, page repository.Page) ([]domain.Team, error) {
	if term == "" {
		return []domain.Team{}, nil
	}
	return s.teams.ListTeams(ctx, repository.TeamFilter{ActiveOnly: true, NameContains: term}, page)
}

// ListForUser returns teams where the user holds the given relation.
func (s Service) ListForUser(ctx context.Context, userID string, relation repository.TeamRelation, activeOnly bool) ([]domain.Team, error) {
	return s.teams.ListTeamsForUser(ctx, userID, relation, activeOnly)
}

// CountForUser counts teams where the user holds the given relation.
func (s Service) CountForUser(ctx context.Context, userID string, relation repository.TeamRelation) (int64, error) {
	return s.teams.CountTeamsForUser(ctx, userID, relation)
}

func (s Service) updateTeam(ctx context.Context, id string, mutate func(*domain.Team) error) (*domain.Team, error) {
	team, err := s.teams.UpdateTeam(ctx, id, mutate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("team %s: %w", id, domain.ErrTeamNotFound)
		}
		return nil, err
	}
	return team, nil
}

func (s Service) nameTaken(ctx context.Context, name string) (bool, error) {
	_, err := s.teams.GetTeamByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
