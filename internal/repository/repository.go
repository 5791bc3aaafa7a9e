package repository

import (
	"context"

	"github.com/teamtasker/teamtasker/internal/domain"
)

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

// TeamRelation selects which membership edge a team listing filters on.
type TeamRelation string

const (
	RelationOwner      TeamRelation = "owner"
	RelationManager    TeamRelation = "manager"
	RelationMember     TeamRelation = "member"
	RelationManagement TeamRelation = "management" // owner or manager
)

// TeamFilter narrows team list queries.
type TeamFilter struct {
	ActiveOnly   bool
	InactiveOnly bool
	NameContains string
}

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, page Page) ([]domain.User, error)
	ListUsersByRole(ctx context.Context, role domain.Role, page Page) ([]domain.User, error)
	ListUsersNotInTeam(ctx context.Context, teamID string, page Page) ([]domain.User, error)
	SearchUsers(ctx context.Context, term string, page Page) ([]domain.User, error)
	CountUsersByRole(ctx context.Context, role domain.Role) (int64, error)
}

// TeamRepository persists the team aggregate with its membership edges.
//
// UpdateTeam is the single write path for mutating an existing team: the
// implementation loads the aggregate under a lock that serializes concurrent
// mutations of the same team, applies mutate, and persists the result
// atomically. An error returned by mutate aborts with nothing written.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	GetTeamByID(ctx context.Context, id string) (*domain.Team, error)
	GetTeamByName(ctx context.Context, name string) (*domain.Team, error)
	UpdateTeam(ctx context.Context, id string, mutate func(*domain.Team) error) (*domain.Team, error)
	DeleteTeam(ctx context.Context, id string) error
	ListTeams(ctx context.Context, filter TeamFilter, page Page) ([]domain.Team, error)
	ListTeamsForUser(ctx context.Context, userID string, relation TeamRelation, activeOnly bool) ([]domain.Team, error)
	CountTeamsForUser(ctx context.Context, userID string, relation TeamRelation) (int64, error)
}
