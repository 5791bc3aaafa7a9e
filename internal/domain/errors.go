package domain

import "errors"

// Lookup failures.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrTeamNotFound = errors.New("team not found")
)

// Uniqueness conflicts. The service-level pre-checks that raise these are
// advisory under concurrency; the storage unique indexes are authoritative.
var (
	ErrNameConflict  = errors.New("team name already exists")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

// Authorization failures. The two kinds are distinct so the boundary can
// report whether general management rights or owner/admin rights were missing.
var (
	ErrNoViewAccess       = errors.New("view access required")
	ErrNoManagementAccess = errors.New("management rights required")
	ErrNotOwnerOrAdmin    = errors.New("owner or admin rights required")
)

// Membership-state precondition failures.
var (
	ErrAlreadyMember     = errors.New("user is already a member of this team")
	ErrAlreadyManager    = errors.New("user is already a manager of this team")
	ErrAlreadyOwner      = errors.New("user is already the owner of this team")
	ErrUserNotInTeam     = errors.New("user is not a member of this team")
	ErrNotAManager       = errors.New("user is not a manager of this team")
	ErrCannotRemoveOwner = errors.New("cannot remove the team owner")
	ErrCannotDemoteOwner = errors.New("cannot demote the team owner")
)

// Credential and input failures.
var (
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrValidation        = errors.New("validation failed")
)
