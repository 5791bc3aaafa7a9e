package httpx

import (
	"time"

	"github.com/teamtasker/teamtasker/internal/domain"
)

type userPayload struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userView(u *domain.User) userPayload {
	return userPayload{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func userViews(users []domain.User) []userPayload {
	views := make([]userPayload, 0, len(users))
	for i := range users {
		views = append(views, userView(&users[i]))
	}
	return views
}

type teamPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	ManagerIDs  []string  `json:"manager_ids"`
	MemberIDs   []string  `json:"member_ids"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func teamView(t *domain.Team) teamPayload {
	managers := t.ManagerIDs
	if managers == nil {
		managers = []string{}
	}
	members := t.MemberIDs
	if members == nil {
		members = []string{}
	}
	return teamPayload{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		OwnerID:     t.OwnerID,
		ManagerIDs:  managers,
		MemberIDs:   members,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func teamViews(teams []domain.Team) []teamPayload {
	views := make([]teamPayload, 0, len(teams))
	for i := range teams {
		views = append(views, teamView(&teams[i]))
	}
	return views
}
