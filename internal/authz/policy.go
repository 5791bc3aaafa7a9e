// Package authz holds the authorization predicates for team access. They are
// pure functions over a (team, user) pair; every rights decision in the
// services goes through here so role checks are never inlined at call sites.
package authz

import "github.com/teamtasker/teamtasker/internal/domain"

// CanView reports whether the user may see the team's detail view: admins see
// every team, everyone else must be enrolled.
func CanView(team *domain.Team, user *domain.User) bool {
	if user == nil || team == nil {
		return false
	}
	return user.IsAdmin() || team.IsMember(user.ID)
}

// CanManage reports whether the user holds day-to-day management rights:
// the owner, any manager, or a global admin. Gates every team mutation except
// deletion, manager appointment and ownership transfer.
func CanManage(team *domain.Team, user *domain.User) bool {
	if user == nil || team == nil {
		return false
	}
	return team.IsOwner(user.ID) || team.IsManager(user.ID) || user.IsAdmin()
}

// IsOwnerOrAdmin reports whether the user holds structural authority over the
// team. Gates deletion, promote/demote and ownership transfer; a manager
// cannot delete the team or reshuffle its managers.
func IsOwnerOrAdmin(team *domain.Team, user *domain.User) bool {
	if user == nil || team == nil {
		return false
	}
	return team.IsOwner(user.ID) || user.IsAdmin()
}
