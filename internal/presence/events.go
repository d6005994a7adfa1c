package presence

import "github.com/rankline/backend/internal/models"

// Channel is the Redis pub/sub channel carrying match lifecycle events.
const Channel = "match_events"

// Event types pushed to clients.
const (
	EventMatchFound     = "match_found"
	EventScoreUpdate    = "score_update"
	EventMatchOver      = "match_over"
	EventMatchCancelled = "match_cancelled"
)

// Event is the wire format for lifecycle notifications. Both participants of
// the embedded match receive the event.
type Event struct {
	Type   string        `json:"type"`
	Match  *models.Match `json:"match,omitempty"`
	Reason string        `json:"reason,omitempty"`
}
