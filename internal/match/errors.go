package match

import "errors"

var (
	// ErrMatchNotFound is returned when the match id does not exist.
	ErrMatchNotFound = errors.New("match not found")

	// ErrNotActive is returned for mutations against a match that is not in
	// the active state (including duplicate completion signals).
	ErrNotActive = errors.New("match is not active")

	// ErrInvalidParticipant is returned when the acting user is not one of
	// the two match participants.
	ErrInvalidParticipant = errors.New("user is not a match participant")
)
