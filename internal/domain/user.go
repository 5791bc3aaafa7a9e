package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the account-wide role of a user.
type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole converts a stored or submitted role value to a Role.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser, nil
	case RoleManager:
		return RoleManager, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("role %q: %w", value, ErrValidation)
}

// User represents a registered account.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Username     string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

const (
	usernameMinLen = 4
	usernameMaxLen = 30
	nameMaxLen     = 50
	emailMaxLen    = 100
)

// Validate checks the identity fields of a user. The password hash is not
// inspected here; password length is enforced before hashing.
func (u *User) Validate() error {
	if strings.TrimSpace(u.FirstName) == "" || len(u.FirstName) > nameMaxLen {
		return fmt.Errorf("first name: %w", ErrValidation)
	}
	if strings.TrimSpace(u.LastName) == "" || len(u.LastName) > nameMaxLen {
		return fmt.Errorf("last name: %w", ErrValidation)
	}
	if err := validateEmail(u.Email); err != nil {
		return err
	}
	if err := ValidateUsername(u.Username); err != nil {
		return err
	}
	if u.Role != RoleUser && u.Role != RoleManager && u.Role != RoleAdmin {
		return fmt.Errorf("role %q: %w", u.Role, ErrValidation)
	}
	return nil
}

// IsAdmin reports whether the user carries the global ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidateUsername enforces username length boundaries.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if len(trimmed) < usernameMinLen || len(trimmed) > usernameMaxLen {
		return fmt.Errorf("username %q: %w", username, ErrValidation)
	}
	return nil
}

func validateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" || len(trimmed) > emailMaxLen {
		return fmt.Errorf("email %q: %w", email, ErrValidation)
	}
	at := strings.Index(trimmed, "@")
	if at < 1 || at == len(trimmed)-1 {
		return fmt.Errorf("email %q: %w", email, ErrValidation)
	}
	return nil
}
