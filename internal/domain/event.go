package domain

import "time"

// TeamEventType enumerates the activity feed event kinds.
const (
	TeamEventCreated              = "team_created"
	TeamEventUpdated              = "team_updated"
	TeamEventDeactivated          = "team_deactivated"
	TeamEventReactivated          = "team_reactivated"
	TeamEventMemberAdded          = "member_added"
	TeamEventMemberRemoved        = "member_removed"
	TeamEventManagerPromoted      = "manager_promoted"
	TeamEventManagerDemoted       = "manager_demoted"
	TeamEventOwnershipTransferred = "ownership_transferred"
)

// TeamEvent describes a change to a team, published to its activity stream.
type TeamEvent struct {
	Type       string    `json:"type"`
	TeamID     string    `json:"team_id"`
	ActorID    string    `json:"actor_id"`
	SubjectID  string    `json:"subject_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
