package team

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
)

type stubTeamRepository struct {
	teams map[string]*domain.Team
}

func (s *stubTeamRepository) CreateTeam(ctx context.Context, team *domain.Team) error {
	for _, existing := range s.teams {
		if existing.Name == team.Name {
			return repository.ErrConflict
		}
	}
	s.teams[team.ID] = copyTeam(team)
	return nil
}

func (s *stubTeamRepository) GetTeamByID(ctx context.Context, id string) (*domain.Team, error) {
	team, ok := s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTeam(team), nil
}

func (s *stubTeamRepository) GetTeamByName(ctx context.Context, name string) (*domain.Team, error) {
	for _, team := range s.teams {
		if team.Name == name {
			return copyTeam(team), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubTeamRepository) UpdateTeam(ctx context.Context, id string, mutate func(*domain.Team) error) (*domain.Team, error) {
	team, ok := s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	draft := copyTeam(team)
	if err := mutate(draft); err != nil {
		return nil, err
	}
	draft.UpdatedAt = time.Now().UTC()
	s.teams[id] = draft
	return copyTeam(draft), nil
}

func (s *stubTeamRepository) DeleteTeam(ctx context.Context, id string) error {
	if _, ok := s.teams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.teams, id)
	return nil
}

func (s *stubTeamRepository) ListTeams(ctx context.Context, filter repository.TeamFilter, page repository.Page) ([]domain.Team, error) {
	var listed []domain.Team
	for _, team := range s.teams {
		if filter.ActiveOnly && !team.IsActive {
			continue
		}
		if filter.InactiveOnly && team.IsActive {
			continue
		}
		if filter.NameContains != "" && !strings.Contains(strings.ToLower(team.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		listed = append(listed, *copyTeam(team))
	}
	return listed, nil
}

func (s *stubTeamRepository) ListTeamsForUser(ctx context.Context, userID string, relation repository.TeamRelation, activeOnly bool) ([]domain.Team, error) {
	var listed []domain.Team
	for _, team := range s.teams {
		if activeOnly && !team.IsActive {
			continue
		}
		if relationHolds(team, userID, relation) {
			listed = append(listed, *copyTeam(team))
		}
	}
	return listed, nil
}

func (s *stubTeamRepository) CountTeamsForUser(ctx context.Context, userID string, relation repository.TeamRelation) (int64, error) {
	var count int64
	for _, team := range s.teams {
		if relationHolds(team, userID, relation) {
			count++
		}
	}
	return count, nil
}

func relationHolds(t *domain.Team, userID string, relation repository.TeamRelation) bool {
	switch relation {
	case repository.RelationOwner:
		return t.IsOwner(userID)
	case repository.RelationManager:
		return t.IsManager(userID)
	case repository.RelationMember:
		return t.IsMember(userID)
	case repository.RelationManagement:
		return t.IsOwner(userID) || t.IsManager(userID)
	}
	return false
}

func copyTeam(t *domain.Team) *domain.Team {
	clone := *t
	clone.ManagerIDs = slices.Clone(t.ManagerIDs)
	clone.MemberIDs = slices.Clone(t.MemberIDs)
	return &clone
}

type capturePublisher struct {
	events []domain.TeamEvent
}

func (p *capturePublisher) Publish(event domain.TeamEvent) {
	p.events = append(p.events, event)
}

func newService(t *testing.T) (Service, *stubTeamRepository, *capturePublisher) {
	t.Helper()
	repo := &stubTeamRepository{teams: make(map[string]*domain.Team)}
	pub := &capturePublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, pub, log), repo, pub
}

func seedTeam(t *testing.T, repo *stubTeamRepository, name, ownerID string) *domain.Team {
	t.Helper()
	team, err := domain.NewTeam("team-"+name, name, "", ownerID, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewTeam: %v", err)
	}
	repo.teams[team.ID] = team
	return team
}

func plainUser(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleUser}
}

func TestCreate(t *testing.T) {
	svc, repo, pub := newService(t)
	owner := plainUser("owner-1")
	team, err := svc.Create(context.Background(), "Platform", "infra crew", owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !team.IsOwner(owner.ID) || !team.IsManager(owner.ID) || !team.IsMember(owner.ID) {
		t.Fatalf("owner not seeded: %+v", team)
	}
	if _, ok := repo.teams[team.ID]; !ok {
		t.Fatal("team not persisted")
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.TeamEventCreated {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestCreateNameConflict(t *testing.T) {
	svc, repo, _ := newService(t)
	seedTeam(t, repo, "Platform", "owner-1")
	if _, err := svc.Create(context.Background(), "Platform", "", plainUser("owner-2")); !errors.Is(err, domain.ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.Create(context.Background(), " ", "", plainUser("owner-1")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestViewAccess(t *testing.T) {
	svc, repo, _ := newService(t)
	team := seedTeam(t, repo, "Platform", "owner-1")

	if _, err := svc.View(context.Background(), team.ID, plainUser("owner-1")); err != nil {
		t.Fatalf("owner view: %v", err)
	}
	if _, err := svc.View(context.Background(), team.ID, plainUser("stranger")); !errors.Is(err, domain.ErrNoViewAccess) {
		t.Fatalf("expected ErrNoViewAccess, got %v", err)
	}
	admin := &domain.User{ID: "root", Role: domain.RoleAdmin}
	if _, err := svc.View(context.Background(), team.ID, admin); err != nil {
		t.Fatalf("admin view: %v", err)
	}
}

func TestUpdateRename(t *testing.T) {
	svc, repo, pub := newService(t)
	team := seedTeam(t, repo, "Platform", "owner-1")

	name := "Core Platform"
	updated, err := svc.Update(context.Background(), team.ID, &name, nil, plainUser("owner-1"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != name || updated.Description != "" {
		t.Fatalf("unexpected result: %+v", updated)
	}
	if repo.teams[team.ID].Name != name {
		t.Fatal("rename not persisted")
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.TeamEventUpdated {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestUpdateRenameToTakenName(t *testing.T) {
	svc, repo, _ := newService(t)
	team := seedTeam(t, repo, "Platform", "owner-1")
	seedTeam(t, repo, "Design", "owner-2")

	name := "Design"
	if _, err := svc.Update(context.Background(), team.ID, &name, nil, plainUser("owner-1")); !errors.Is(err, domain.ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
	if repo.teams[team.ID].Name != "Platform" {
		t.Fatal("failed rename must leave the team untouched")
	}
}

// A valid rename paired with an oversized description persists neither.
func TestUpdateAtomicity(t *testing.T) {
	svc, repo, _ := newService(t)
	team := seedTeam(t, repo, "Platform", "owner-1")

	name := "Renamed"
	desc := strings.Repeat("d", 501)
	if _, err := svc.Update(context.Background(), team.ID, &name, &desc, plainUser("owner-1")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	stored := repo.teams[team.ID]
	if stored.Name != "Platform" || stored.Description != "" {
		t.Fatalf("partial update persisted: %+v", stored)
	}
}

func TestUpdateRequiresManagement(t *testing.T) {
	svc, repo, _ := newService(t)
	team := seedTeam(t, repo, "Platform", "owner-1")
	if err := team.AddMember("member-1"); err != nil {
		t.Fatal(err)
	}

	name := "Renamed"
	if _, err := svc.Update(context.Background(), team.ID, &name, nil, plainUser("member-1")); !errors.Is(err, domain.ErrNoManagementAccess) {
		t.Fatalf("expected ErrNoManagementAccess, got %v", err)
	}
}

func TestDeleteReservedForOwner(t *testing.T) {
	svc, repo, _ := newService(t)
	team := seedTeam(t, repo, "Platform", "owner-1")
	if err := team.AddMember("manager-1"); err != nil {
		t.Fatal(err)
	}
	if err := team.Promote("manager-1"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(context.Background(), team.ID, plainUser("manager-1")); !errors.Is(err, domain.ErrNotOwnerOrAdmin) {
		t.Fatalf("expected ErrNotOwnerOrAdmin, got %v", err)
	}
	if err := svc.Delete(context.Background(), team.ID, plainUser("owner-1")); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, ok := repo.teams[team.ID]; ok {
		t.Fatal("team still present after delete")
	}
}

func TestDeactivateReactivate(t *testing.T) {
	svc, repo, pub := newService(t)
	team := seedTeam(t, repo, "Platform", "owner-1")

	deactivated, err := svc.Deactivate(context.Background(), team.ID, plainUser("owner-1"))
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if deactivated.IsActive || repo.teams[team.ID].IsActive {
		t.Fatal("team should be inactive")
	}

	reactivated, err := svc.Reactivate(context.Background(), team.ID, plainUser("owner-1"))
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if !reactivated.IsActive {
		t.Fatal("team should be active again")
	}
	if len(pub.events) != 2 || pub.events[0].Type != domain.TeamEventDeactivated || pub.events[1].Type != domain.TeamEventReactivated {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestSearchBlankTerm(t *testing.T) {
	svc, repo, _ := newService(t)
	seedTeam(t, repo, "Platform", "owner-1")
	found, err := svc.Search(context.Background(), "", repository.Page{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("blank term should match nothing, got %d", len(found))
	}
}

func TestListForUserRelations(t *testing.T) {
	svc, repo, _ := newService(t)
	team := seedTeam(t, repo, "Platform", "owner-1")
	if err := team.AddMember("member-1"); err != nil {
		t.Fatal(err)
	}

	owned, err := svc.ListForUser(context.Background(), "owner-1", repository.RelationOwner, true)
	if err != nil || len(owned) != 1 {
		t.Fatalf("owner relation: %v (%d)", err, len(owned))
	}
	managed, err := svc.ListForUser(context.Background(), "member-1", repository.RelationManagement, true)
	if err != nil || len(managed) != 0 {
		t.Fatalf("member should hold no management relation: %v (%d)", err, len(managed))
	}
	count, err := svc.CountForUser(context.Background(), "member-1", repository.RelationMember)
	if err != nil || count != 1 {
		t.Fatalf("member count: %v (%d)", err, count)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.GetByID(context.Background(), "ghost"); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("expected ErrTeamNotFound, got %v", err)
	}
}
