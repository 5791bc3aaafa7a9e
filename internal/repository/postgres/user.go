package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
)

const userColumns = `id, first_name, last_name, email, username, password_hash, role, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return repository.ErrInvalidArgument
	}
	const query = `INSERT INTO users (id, first_name, last_name, email, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.FirstName, user.LastName, user.Email, user.Username, user.PasswordHash, string(user.Role), user.CreatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByUsername fetches a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// UpdateUser persists mutable user fields.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return repository.ErrInvalidArgument
	}
	const query = `UPDATE users
		SET first_name = $2,
			last_name = $3,
			email = $4,
			password_hash = $5,
			role = $6
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, string(user.Role))
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user. Membership edges cascade at the schema level.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListUsers returns a page of users ordered by username.
func (r *Repository) ListUsers(ctx context.Context, page repository.Page) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY username LIMIT $1 OFFSET $2`
	return r.queryUsers(ctx, query, pageLimit(page), page.Offset)
}

// ListUsersByRole returns users holding the given global role.
func (r *Repository) ListUsersByRole(ctx context.Context, role domain.Role, page repository.Page) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY username LIMIT $2 OFFSET $3`
	return r.queryUsers(ctx, query, string(role), pageLimit(page), page.Offset)
}

// ListUsersNotInTeam returns users not enrolled in the given team.
func (r *Repository) ListUsersNotInTeam(ctx context.Context, teamID string, page repository.Page) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users u
		WHERE NOT EXISTS (
			SELECT 1 FROM team_members tm WHERE tm.team_id = $1 AND tm.user_id = u.id
		)
		ORDER BY username LIMIT $2 OFFSET $3`
	return r.queryUsers(ctx, query, teamID, pageLimit(page), page.Offset)
}

// SearchUsers matches the term against names, username and full name,
// case-insensitively.
func (r *Repository) SearchUsers(ctx context.Context, term string, page repository.Page) ([]domain.User, error) {
	pattern := "%" + strings.TrimSpace(term) + "%"
	const query = `SELECT ` + userColumns + ` FROM users
		WHERE first_name ILIKE $1
			OR last_name ILIKE $1
			OR username ILIKE $1
			OR (first_name || ' ' || last_name) ILIKE $1
		ORDER BY username LIMIT $2 OFFSET $3`
	return r.queryUsers(ctx, query, pattern, pageLimit(page), page.Offset)
}

// CountUsersByRole counts users holding the given role.
func (r *Repository) CountUsersByRole(ctx context.Context, role domain.Role) (int64, error) {
	const query = `SELECT COUNT(1) FROM users WHERE role = $1`
	var count int64
	if err := r.pool.QueryRow(ctx, query, string(role)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		var role string
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = domain.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

const defaultPageLimit = 50

func pageLimit(page repository.Page) int {
	if page.Limit <= 0 {
		return defaultPageLimit
	}
	return page.Limit
}
