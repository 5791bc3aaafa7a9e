package user

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"log/slog"

	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
)

type memoryUserRepository struct {
	users map[string]*domain.User // keyed by ID
}

func (m *memoryUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memoryUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memoryUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	existing, ok := m.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range m.users {
		if other.ID != user.ID && other.Email == user.Email {
			return repository.ErrConflict
		}
	}
	*existing = *user
	return nil
}

func (m *memoryUserRepository) DeleteUser(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUserRepository) ListUsers(ctx context.Context, page repository.Page) ([]domain.User, error) {
	listed := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		listed = append(listed, *user)
	}
	return listed, nil
}

func (m *memoryUserRepository) ListUsersByRole(ctx context.Context, role domain.Role, page repository.Page) ([]domain.User, error) {
	var listed []domain.User
	for _, user := range m.users {
		if user.Role == role {
			listed = append(listed, *user)
		}
	}
	return listed, nil
}

func (m *memoryUserRepository) ListUsersNotInTeam(ctx context.Context, teamID string, page repository.Page) ([]domain.User, error) {
	return nil, nil
}

func (m *memoryUserRepository) SearchUsers(ctx context.Context, term string, page repository.Page) ([]domain.User, error) {
	var listed []domain.User
	for _, user := range m.users {
		if strings.Contains(strings.ToLower(user.Username), strings.ToLower(term)) {
			listed = append(listed, *user)
		}
	}
	return listed, nil
}

func (m *memoryUserRepository) CountUsersByRole(ctx context.Context, role domain.Role) (int64, error) {
	var count int64
	for _, user := range m.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

func seedUser(repo *memoryUserRepository, id, username string, role domain.Role) *domain.User {
	user := &domain.User{
		ID:        id,
		FirstName: "First",
		LastName:  "Last",
		Email:     username + "@example.com",
		Username:  username,
		Role:      role,
	}
	repo.users[id] = user
	return user
}

func newTestService() (Service, *memoryUserRepository) {
	repo := &memoryUserRepository{users: make(map[string]*domain.User)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, log), repo
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.GetByID(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSearchBlankTerm(t *testing.T) {
	svc, repo := newTestService()
	seedUser(repo, "u1", "adal", domain.RoleUser)
	found, err := svc.Search(context.Background(), "  ", repository.Page{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("blank term should match nothing, got %d", len(found))
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, repo := newTestService()
	seedUser(repo, "u1", "adal", domain.RoleUser)

	updated, err := svc.UpdateProfile(context.Background(), "u1", " Ada ", "Lovelace", "ada@example.org")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.FirstName != "Ada" || updated.Email != "ada@example.org" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if repo.users["u1"].Email != "ada@example.org" {
		t.Fatal("profile change not persisted")
	}
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	svc, repo := newTestService()
	seedUser(repo, "u1", "adal", domain.RoleUser)
	seedUser(repo, "u2", "grace", domain.RoleUser)

	if _, err := svc.UpdateProfile(context.Background(), "u1", "Ada", "Lovelace", "grace@example.com"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, repo := newTestService()
	seedUser(repo, "u1", "adal", domain.RoleUser)
	if _, err := svc.UpdateProfile(context.Background(), "u1", "", "Lovelace", "ada@example.com"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateRoleRequiresAdmin(t *testing.T) {
	svc, repo := newTestService()
	seedUser(repo, "u1", "adal", domain.RoleUser)
	actor := seedUser(repo, "u2", "grace", domain.RoleUser)

	if _, err := svc.UpdateRole(context.Background(), "u1", domain.RoleManager, actor); !errors.Is(err, domain.ErrNotOwnerOrAdmin) {
		t.Fatalf("expected ErrNotOwnerOrAdmin, got %v", err)
	}

	admin := seedUser(repo, "u3", "root", domain.RoleAdmin)
	updated, err := svc.UpdateRole(context.Background(), "u1", domain.RoleManager, admin)
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if updated.Role != domain.RoleManager {
		t.Fatalf("expected MANAGER role, got %v", updated.Role)
	}
}

func TestDeleteSelfOrAdmin(t *testing.T) {
	svc, repo := newTestService()
	seedUser(repo, "u1", "adal", domain.RoleUser)
	other := seedUser(repo, "u2", "grace", domain.RoleUser)

	if err := svc.Delete(context.Background(), "u1", other); !errors.Is(err, domain.ErrNotOwnerOrAdmin) {
		t.Fatalf("expected ErrNotOwnerOrAdmin, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u2", other); err != nil {
		t.Fatalf("self delete: %v", err)
	}
	admin := seedUser(repo, "u3", "root", domain.RoleAdmin)
	if err := svc.Delete(context.Background(), "u1", admin); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected only admin left, got %d", len(repo.users))
	}
}

func TestCountsByRole(t *testing.T) {
	svc, repo := newTestService()
	seedUser(repo, "u1", "adal", domain.RoleUser)
	seedUser(repo, "u2", "grace", domain.RoleUser)
	seedUser(repo, "u3", "root", domain.RoleAdmin)

	counts, err := svc.CountsByRole(context.Background())
	if err != nil {
		t.Fatalf("CountsByRole: %v", err)
	}
	if counts[domain.RoleUser] != 2 || counts[domain.RoleManager] != 0 || counts[domain.RoleAdmin] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
