package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
)

const teamColumns = `id, name, description, owner_id, is_active, created_at, updated_at`

// CreateTeam inserts a team with its seeded membership edges in one
// transaction.
func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team) error {
	if team == nil {
		return repository.ErrInvalidArgument
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const query = `INSERT INTO teams (id, name, description, owner_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.Exec(ctx, query, team.ID, team.Name, team.Description, team.OwnerID, team.IsActive, team.CreatedAt, team.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	if err := insertEdges(ctx, tx, "team_managers", team.ID, team.ManagerIDs); err != nil {
		return mapWriteError(err)
	}
	if err := insertEdges(ctx, tx, "team_members", team.ID, team.MemberIDs); err != nil {
		return mapWriteError(err)
	}
	return tx.Commit(ctx)
}

// GetTeamByID loads the aggregate including membership edges.
func (r *Repository) GetTeamByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return r.loadTeam(ctx, r.pool, query, id)
}

// GetTeamByName is an exact, case-sensitive lookup.
func (r *Repository) GetTeamByName(ctx context.Context, name string) (*domain.Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM teams WHERE name = $1`
	return r.loadTeam(ctx, r.pool, query, name)
}

// UpdateTeam applies mutate to the aggregate inside a transaction holding a
// row lock on the team, so concurrent mutations of the same team serialize
// and partial membership updates are never visible. An error from mutate
// rolls everything back and is returned untouched.
func (r *Repository) UpdateTeam(ctx context.Context, id string, mutate func(*domain.Team) error) (*domain.Team, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const query = `SELECT ` + teamColumns + ` FROM teams WHERE id = $1 FOR UPDATE`
	team, err := r.loadTeam(ctx, tx, query, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(team); err != nil {
		return nil, err
	}
	team.UpdatedAt = time.Now().UTC()

	const update = `UPDATE teams
		SET name = $2,
			description = $3,
			owner_id = $4,
			is_active = $5,
			updated_at = $6
		WHERE id = $1`
	if _, err := tx.Exec(ctx, update, team.ID, team.Name, team.Description, team.OwnerID, team.IsActive, team.UpdatedAt); err != nil {
		return nil, mapWriteError(err)
	}
	if err := replaceEdges(ctx, tx, "team_managers", team.ID, team.ManagerIDs); err != nil {
		return nil, mapWriteError(err)
	}
	if err := replaceEdges(ctx, tx, "team_members", team.ID, team.MemberIDs); err != nil {
		return nil, mapWriteError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return team, nil
}

// DeleteTeam removes the team; membership edges cascade at the schema level.
func (r *Repository) DeleteTeam(ctx context.Context, id string) error {
	const query = `DELETE FROM teams WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListTeams returns teams matching the filter, newest first.
func (r *Repository) ListTeams(ctx context.Context, filter repository.TeamFilter, page repository.Page) ([]domain.Team, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ActiveOnly {
		conds = append(conds, "is_active = TRUE")
	}
	if filter.InactiveOnly {
		conds = append(conds, "is_active = FALSE")
	}
	if term := strings.TrimSpace(filter.NameContains); term != "" {
		args = append(args, "%"+term+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	query := `SELECT ` + teamColumns + ` FROM teams`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, pageLimit(page))
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, page.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	return r.queryTeams(ctx, query, args...)
}

// ListTeamsForUser returns teams where the user holds the given relation.
func (r *Repository) ListTeamsForUser(ctx context.Context, userID string, relation repository.TeamRelation, activeOnly bool) ([]domain.Team, error) {
	cond, err := relationCondition(relation)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE ` + cond
	if activeOnly {
		query += " AND t.is_active = TRUE"
	}
	query += " ORDER BY t.created_at DESC"
	return r.queryTeams(ctx, query, userID)
}

// CountTeamsForUser counts teams where the user holds the given relation.
func (r *Repository) CountTeamsForUser(ctx context.Context, userID string, relation repository.TeamRelation) (int64, error) {
	cond, err := relationCondition(relation)
	if err != nil {
		return 0, err
	}
	query := `SELECT COUNT(1) FROM teams t WHERE ` + cond
	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func relationCondition(relation repository.TeamRelation) (string, error) {
	switch relation {
	case repository.RelationOwner:
		return `t.owner_id = $1`, nil
	case repository.RelationManager:
		return `EXISTS (SELECT 1 FROM team_managers m WHERE m.team_id = t.id AND m.user_id = $1)`, nil
	case repository.RelationMember:
		return `EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = t.id AND m.user_id = $1)`, nil
	case repository.RelationManagement:
		return `(t.owner_id = $1 OR EXISTS (SELECT 1 FROM team_managers m WHERE m.team_id = t.id AND m.user_id = $1))`, nil
	}
	return "", fmt.Errorf("relation %q: %w", relation, repository.ErrInvalidArgument)
}

// querier covers both pool and transaction access.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) loadTeam(ctx context.Context, q querier, query string, arg any) (*domain.Team, error) {
	var team domain.Team
	row := q.QueryRow(ctx, query, arg)
	if err := row.Scan(&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.IsActive, &team.CreatedAt, &team.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	managers, err := queryEdges(ctx, q, "team_managers", team.ID)
	if err != nil {
		return nil, err
	}
	members, err := queryEdges(ctx, q, "team_members", team.ID)
	if err != nil {
		return nil, err
	}
	team.ManagerIDs = managers
	team.MemberIDs = members
	return &team, nil
}

func (r *Repository) queryTeams(ctx context.Context, query string, args ...any) ([]domain.Team, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.IsActive, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range teams {
		managers, err := queryEdges(ctx, r.pool, "team_managers", teams[i].ID)
		if err != nil {
			return nil, err
		}
		members, err := queryEdges(ctx, r.pool, "team_members", teams[i].ID)
		if err != nil {
			return nil, err
		}
		teams[i].ManagerIDs = managers
		teams[i].MemberIDs = members
	}
	return teams, nil
}

func queryEdges(ctx context.Context, q querier, table, teamID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT user_id FROM %s WHERE team_id = $1 ORDER BY user_id`, table)
	rows, err := q.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertEdges(ctx context.Context, tx pgx.Tx, table, teamID string, userIDs []string) error {
	query := fmt.Sprintf(`INSERT INTO %s (team_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table)
	for _, userID := range userIDs {
		if _, err := tx.Exec(ctx, query, teamID, userID); err != nil {
			return err
		}
	}
	return nil
}

func replaceEdges(ctx context.Context, tx pgx.Tx, table, teamID string, userIDs []string) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE team_id = $1`, table), teamID); err != nil {
		return err
	}
	return insertEdges(ctx, tx, table, teamID, userIDs)
}
