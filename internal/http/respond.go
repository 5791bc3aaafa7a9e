package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/teamtasker/teamtasker/internal/domain"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a service failure kind to an HTTP status. The error
// message carries the identifying context the services wrapped in.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFromError(err), err.Error())
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTeamNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNameConflict),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrAlreadyManager),
		errors.Is(err, domain.ErrAlreadyOwner),
		errors.Is(err, domain.ErrUserNotInTeam),
		errors.Is(err, domain.ErrNotAManager),
		errors.Is(err, domain.ErrCannotRemoveOwner),
		errors.Is(err, domain.ErrCannotDemoteOwner):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoViewAccess),
		errors.Is(err, domain.ErrNoManagementAccess),
		errors.Is(err, domain.ErrNotOwnerOrAdmin):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
