package matchmaking

import "errors"

var (
	// ErrAlreadyQueued is returned by Join when the user already holds a
	// live queue entry.
	ErrAlreadyQueued = errors.New("user already queued")

	// ErrAlreadyInMatch is returned by Join when the user has a live match.
	ErrAlreadyInMatch = errors.New("user already in a match")

	// ErrNotEnoughWaiting signals that fewer than two entries could be
	// claimed for pairing. Not an error condition for callers.
	ErrNotEnoughWaiting = errors.New("not enough waiting players")

	// ErrPairingConflict signals that a concurrent pairing attempt or leave
	// raced ahead. Recovered internally by retrying with a fresh read.
	ErrPairingConflict = errors.New("pairing conflict")

	// ErrPairingUnavailable is surfaced once the bounded retry budget is
	// exhausted. Both entries stay queued for the next sweep.
	ErrPairingUnavailable = errors.New("pairing unavailable")
)
