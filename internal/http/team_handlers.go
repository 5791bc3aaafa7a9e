package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teamtasker/teamtasker/internal/authz"
	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/repository"
	"github.com/teamtasker/teamtasker/internal/ws"
)

const sseHeartbeatInterval = 25 * time.Second

func (r *Router) handleTeams(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleTeamList(w, req)
	case http.MethodPost:
		r.handleTeamCreate(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTeamList(w http.ResponseWriter, req *http.Request) {
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	query := req.URL.Query()
	page := pageFromQuery(req)

	if term := strings.TrimSpace(query.Get("q")); term != "" {
		found, err := r.teams.Search(req.Context(), term, page)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"teams": teamViews(found)})
		return
	}

	if mine := strings.TrimSpace(query.Get("mine")); mine != "" {
		relation, err := parseRelation(mine)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		activeOnly := query.Get("scope") != "all"
		listed, err := r.teams.ListForUser(req.Context(), acting.ID, relation, activeOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"teams": teamViews(listed)})
		return
	}

	if query.Get("scope") == "inactive" {
		if !acting.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin rights required")
			return
		}
		listed, err := r.teams.ListInactive(req.Context(), page)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"teams": teamViews(listed)})
		return
	}

	listed, err := r.teams.ListActive(req.Context(), page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teamViews(listed)})
}

func (r *Router) handleTeamCreate(w http.ResponseWriter, req *http.Request) {
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.teams.Create(req.Context(), payload.Name, payload.Description, acting)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"team": teamView(created)})
}

func (r *Router) handleTeamSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/teams/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	teamID := parts[0]
	if len(parts) == 1 {
		r.handleTeam(w, req, teamID)
		return
	}
	switch parts[1] {
	case "deactivate":
		if len(parts) == 2 {
			r.handleTeamActivation(w, req, teamID, false)
			return
		}
	case "reactivate":
		if len(parts) == 2 {
			r.handleTeamActivation(w, req, teamID, true)
			return
		}
	case "members":
		if len(parts) == 2 {
			r.handleTeamMembers(w, req, teamID)
			return
		}
		if len(parts) == 3 && parts[2] != "" {
			r.handleTeamMember(w, req, teamID, parts[2])
			return
		}
	case "managers":
		if len(parts) == 2 {
			r.handleTeamManagers(w, req, teamID)
			return
		}
		if len(parts) == 3 && parts[2] != "" {
			r.handleTeamManager(w, req, teamID, parts[2])
			return
		}
	case "owner":
		if len(parts) == 2 {
			r.handleTeamOwner(w, req, teamID)
			return
		}
	case "candidates":
		if len(parts) == 2 {
			r.handleTeamCandidates(w, req, teamID)
			return
		}
	case "events":
		if len(parts) == 2 {
			r.handleTeamSSE(w, req, teamID)
			return
		}
	}
	r.notFound(w)
}

func (r *Router) handleTeam(w http.ResponseWriter, req *http.Request, teamID string) {
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		viewed, err := r.teams.View(req.Context(), teamID, acting)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"team": teamView(viewed)})
	case http.MethodPut:
		var payload struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.teams.Update(req.Context(), teamID, payload.Name, payload.Description, acting)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"team": teamView(updated)})
	case http.MethodDelete:
		if err := r.teams.Delete(req.Context(), teamID, acting); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTeamActivation(w http.ResponseWriter, req *http.Request, teamID string, active bool) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var (
		updated *domain.Team
		err     error
	)
	if active {
		updated, err = r.teams.Reactivate(req.Context(), teamID, acting)
	} else {
		updated, err = r.teams.Deactivate(req.Context(), teamID, acting)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": teamView(updated)})
}

func (r *Router) handleTeamMembers(w http.ResponseWriter, req *http.Request, teamID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	username, ok := decodeUsername(w, req)
	if !ok {
		return
	}
	updated, err := r.membership.AddMember(req.Context(), teamID, username, acting)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": teamView(updated)})
}

func (r *Router) handleTeamMember(w http.ResponseWriter, req *http.Request, teamID, username string) {
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	updated, err := r.membership.RemoveMember(req.Context(), teamID, username, acting)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": teamView(updated)})
}

func (r *Router) handleTeamManagers(w http.ResponseWriter, req *http.Request, teamID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	username, ok := decodeUsername(w, req)
	if !ok {
		return
	}
	updated, err := r.membership.PromoteToManager(req.Context(), teamID, username, acting)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": teamView(updated)})
}

func (r *Router) handleTeamManager(w http.ResponseWriter, req *http.Request, teamID, username string) {
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	updated, err := r.membership.DemoteFromManager(req.Context(), teamID, username, acting)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": teamView(updated)})
}

func (r *Router) handleTeamOwner(w http.ResponseWriter, req *http.Request, teamID string) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	username, ok := decodeUsername(w, req)
	if !ok {
		return
	}
	updated, err := r.membership.TransferOwnership(req.Context(), teamID, username, acting)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": teamView(updated)})
}

// handleTeamCandidates lists users that can still be invited to the team.
func (r *Router) handleTeamCandidates(w http.ResponseWriter, req *http.Request, teamID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	viewed, err := r.teams.GetByID(req.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !authz.CanManage(viewed, acting) {
		writeDomainError(w, domain.ErrNoManagementAccess)
		return
	}
	candidates, err := r.users.ListNotInTeam(req.Context(), teamID, pageFromQuery(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": userViews(candidates)})
}

func (r *Router) handleTeamWS(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	teamID := strings.TrimSpace(req.URL.Query().Get("team_id"))
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "team_id query parameter required")
		return
	}
	if _, err := r.teams.View(req.Context(), teamID, acting); err != nil {
		writeDomainError(w, err)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err, "team_id", teamID)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub := r.events.Hub()
	hub.Register(teamID, client)
	defer func() {
		hub.Unregister(teamID, client)
		client.Close()
	}()

	// Drain reads so close frames and pings are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *Router) handleTeamSSE(w http.ResponseWriter, req *http.Request, teamID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	acting, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if _, err := r.teams.View(req.Context(), teamID, acting); err != nil {
		writeDomainError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	hub := r.events.Hub()
	hub.Register(teamID, client)
	defer func() {
		hub.Unregister(teamID, client)
		client.Close()
	}()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func decodeUsername(w http.ResponseWriter, req *http.Request) (string, bool) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	username := strings.TrimSpace(payload.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username required")
		return "", false
	}
	return username, true
}

func parseRelation(value string) (repository.TeamRelation, error) {
	switch repository.TeamRelation(strings.ToLower(value)) {
	case repository.RelationOwner:
		return repository.RelationOwner, nil
	case repository.RelationManager:
		return repository.RelationManager, nil
	case repository.RelationMember:
		return repository.RelationMember, nil
	case repository.RelationManagement:
		return repository.RelationManagement, nil
	default:
		return "", fmt.Errorf("%w: unknown relation %q", domain.ErrValidation, value)
	}
}
