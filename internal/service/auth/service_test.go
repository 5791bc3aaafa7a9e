package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
	"github.com/teamtasker/teamtasker/pkg/config"
)

type memoryUserRepository struct {
	users map[string]*domain.User // keyed by ID
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[string]*domain.User)}
}

func (m *memoryUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return fmt.Errorf("users_username_key: %w", repository.ErrConflict)
		}
		if existing.Email == user.Email {
			return fmt.Errorf("users_email_key: %w", repository.ErrConflict)
		}
	}
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
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	m.users[user.ID] = &clone
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
	return nil, nil
}

func (m *memoryUserRepository) ListUsersByRole(ctx context.Context, role domain.Role, page repository.Page) ([]domain.User, error) {
	return nil, nil
}

func (m *memoryUserRepository) ListUsersNotInTeam(ctx context.Context, teamID string, page repository.Page) ([]domain.User, error) {
	return nil, nil
}

func (m *memoryUserRepository) SearchUsers(ctx context.Context, term string, page repository.Page) ([]domain.User, error) {
	return nil, nil
}

func (m *memoryUserRepository) CountUsersByRole(ctx context.Context, role domain.Role) (int64, error) {
	return 0, nil
}

func testConfig() config.APIConfig {
	return config.APIConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func newTestService() (Service, *memoryUserRepository) {
	repo := newMemoryUserRepository()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, log, testConfig()), repo
}

func validRegistration() Registration {
	return Registration{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Username:  "adal",
		Password:  "correct horse",
	}
}

func TestRegister(t *testing.T) {
	svc, repo := newTestService()
	user, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected USER role, got %v", user.Role)
	}
	stored, err := repo.GetUserByUsername(context.Background(), "adal")
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if string(stored.PasswordHash) == "correct horse" {
		t.Fatal("password stored in plaintext")
	}
}

func TestRegisterShortPassword(t *testing.T) {
	svc, _ := newTestService()
	reg := validRegistration()
	reg.Password = "short"
	if _, err := svc.Register(context.Background(), reg); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatal(err)
	}
	dup := validRegistration()
	dup.Email = "other@example.com"
	if _, err := svc.Register(context.Background(), dup); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatal(err)
	}
	dup := validRegistration()
	dup.Username = "other"
	if _, err := svc.Register(context.Background(), dup); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginAndAuthorize(t *testing.T) {
	svc, _ := newTestService()
	registered, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatal(err)
	}

	user, tokens, err := svc.Login(context.Background(), "adal", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != registered.ID || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("unexpected login result: %+v", tokens)
	}
	if tokens.ExpiresIn != int64(time.Hour.Seconds()) {
		t.Fatalf("unexpected expiry: %d", tokens.ExpiresIn)
	}

	acting, err := svc.Authorize(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if acting.ID != registered.ID {
		t.Fatalf("authorized wrong user: %s", acting.ID)
	}
}

func TestLoginInvalidCredential(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Login(context.Background(), "adal", "wrong"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("wrong password: expected ErrInvalidCredential, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "ghost", "whatever"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("unknown user: expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthorizeRejectsGarbage(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Authorize(context.Background(), ""); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("empty token: expected ErrInvalidCredential, got %v", err)
	}
	if _, err := svc.Authorize(context.Background(), "not-a-token"); err == nil {
		t.Fatal("malformed token accepted")
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService()
	registered, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ChangePassword(context.Background(), registered.ID, "wrong", "new password"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), registered.ID, "correct horse", "new password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "adal", "new password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "adal", "correct horse"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("old password still accepted: %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	repo := newMemoryUserRepository()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	cfg.AdminUsername = "root"
	cfg.AdminEmail = "root@example.com"
	cfg.AdminPassword = "bootstrap-secret"
	svc := New(repo, log, cfg)

	if err := svc.EnsureAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	admin, err := repo.GetUserByUsername(context.Background(), "root")
	if err != nil {
		t.Fatalf("admin missing: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN role, got %v", admin.Role)
	}

	// Idempotent across restarts.
	if err := svc.EnsureAdmin(context.Background()); err != nil {
		t.Fatalf("second EnsureAdmin: %v", err)
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected a single seeded account, got %d", len(repo.users))
	}
}

func TestEnsureAdminUnconfigured(t *testing.T) {
	svc, repo := newTestService()
	if err := svc.EnsureAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureAdmin without config: %v", err)
	}
	if len(repo.users) != 0 {
		t.Fatal("no account should be seeded without credentials")
	}
}
