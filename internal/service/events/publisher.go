package events

import (
	"encoding/json"
	"time"

	"log/slog"

	"github.com/teamtasker/teamtasker/internal/domain"
	"github.com/teamtasker/teamtasker/internal/ws"
)

// Publisher delivers team activity events to whoever is listening. Services
// publish through this interface so tests can capture events.
type Publisher interface {
	Publish(event domain.TeamEvent)
}

// Service broadcasts team events over the websocket/SSE hub.
type Service struct {
	hub    *ws.Hub
	logger *slog.Logger
}

// New constructs an event service.
func New(hub *ws.Hub, logger *slog.Logger) Service {
	return Service{hub: hub, logger: logger}
}

var _ Publisher = Service{}

// Publish marshals the event and fans it out to the team's subscribers.
func (s Service) Publish(event domain.TeamEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal team event", "error", err, "type", event.Type)
		return
	}
	s.hub.Broadcast(event.TeamID, payload)
	s.logger.Debug("team event published", "type", event.Type, "team_id", event.TeamID)
}

// Hub exposes the underlying hub for HTTP stream handlers.
func (s Service) Hub() *ws.Hub {
	return s.hub
}
