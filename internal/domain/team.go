package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	teamNameMaxLen = 100
	teamDescMaxLen = 500
)

// Team is the membership aggregate. The owner is always present in both
// ManagerIDs and MemberIDs, and every manager is a member; the mutators below
// maintain that ordering so a loaded team can only be changed through them.
type Team struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	ManagerIDs  []string
	MemberIDs   []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTeam constructs a team with the owner seeded as its only manager and
// member.
func NewTeam(id, name, description, ownerID string, now time.Time) (*Team, error) {
	team := &Team{
		ID:          id,
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		ManagerIDs:  []string{ownerID},
		MemberIDs:   []string{ownerID},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	return team, nil
}

// Validate checks name and description boundaries.
func (t *Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" || len(t.Name) > teamNameMaxLen {
		return fmt.Errorf("team name %q: %w", t.Name, ErrValidation)
	}
	if len(t.Description) > teamDescMaxLen {
		return fmt.Errorf("team description: %w", ErrValidation)
	}
	if t.OwnerID == "" {
		return fmt.Errorf("team owner: %w", ErrValidation)
	}
	return nil
}

// IsOwner reports whether the user is the current owner.
func (t *Team) IsOwner(userID string) bool {
	return t.OwnerID == userID
}

// IsManager reports whether the user is in the manager set.
func (t *Team) IsManager(userID string) bool {
	return slices.Contains(t.ManagerIDs, userID)
}

// IsMember reports whether the user is in the member set.
func (t *Team) IsMember(userID string) bool {
	return slices.Contains(t.MemberIDs, userID)
}

// RegularMemberIDs returns members that are neither managers nor the owner.
func (t *Team) RegularMemberIDs() []string {
	regular := make([]string, 0, len(t.MemberIDs))
	for _, id := range t.MemberIDs {
		if !t.IsManager(id) {
			regular = append(regular, id)
		}
	}
	return regular
}

// AddMember enrolls the user as a plain member.
func (t *Team) AddMember(userID string) error {
	if t.IsMember(userID) {
		return fmt.Errorf("user %s: %w", userID, ErrAlreadyMember)
	}
	t.MemberIDs = append(t.MemberIDs, userID)
	return nil
}

// RemoveMember drops the user from the member set, stripping manager status
// alongside. The owner cannot be removed.
func (t *Team) RemoveMember(userID string) error {
	if !t.IsMember(userID) {
		return fmt.Errorf("user %s: %w", userID, ErrUserNotInTeam)
	}
	if t.IsOwner(userID) {
		return fmt.Errorf("user %s: %w", userID, ErrCannotRemoveOwner)
	}
	t.MemberIDs = slices.DeleteFunc(t.MemberIDs, func(id string) bool { return id == userID })
	t.ManagerIDs = slices.DeleteFunc(t.ManagerIDs, func(id string) bool { return id == userID })
	return nil
}

// Promote grants manager rights to an existing member.
func (t *Team) Promote(userID string) error {
	if !t.IsMember(userID) {
		return fmt.Errorf("user %s: %w", userID, ErrUserNotInTeam)
	}
	if t.IsManager(userID) {
		return fmt.Errorf("user %s: %w", userID, ErrAlreadyManager)
	}
	t.ManagerIDs = append(t.ManagerIDs, userID)
	return nil
}

// Demote revokes manager rights. The owner's manager status is structural and
// cannot be revoked directly.
func (t *Team) Demote(userID string) error {
	if !t.IsManager(userID) {
		return fmt.Errorf("user %s: %w", userID, ErrNotAManager)
	}
	if t.IsOwner(userID) {
		return fmt.Errorf("user %s: %w", userID, ErrCannotDemoteOwner)
	}
	t.ManagerIDs = slices.DeleteFunc(t.ManagerIDs, func(id string) bool { return id == userID })
	return nil
}

// TransferOwnership makes an existing member the owner. The previous owner
// stays enrolled as a manager; demoting them is a separate operation.
func (t *Team) TransferOwnership(newOwnerID string) error {
	if !t.IsMember(newOwnerID) {
		return fmt.Errorf("user %s: %w", newOwnerID, ErrUserNotInTeam)
	}
	if t.IsOwner(newOwnerID) {
		return fmt.Errorf("user %s: %w", newOwnerID, ErrAlreadyOwner)
	}
	if !t.IsManager(newOwnerID) {
		t.ManagerIDs = append(t.ManagerIDs, newOwnerID)
	}
	t.OwnerID = newOwnerID
	return nil
}

// Rename changes the team name. Uniqueness against other teams is checked by
// the lifecycle service and backstopped by the storage unique index.
func (t *Team) Rename(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > teamNameMaxLen {
		return fmt.Errorf("team name %q: %w", name, ErrValidation)
	}
	t.Name = name
	return nil
}

// SetDescription overwrites the description.
func (t *Team) SetDescription(description string) error {
	if len(description) > teamDescMaxLen {
		return fmt.Errorf("team description: %w", ErrValidation)
	}
	t.Description = description
	return nil
}
