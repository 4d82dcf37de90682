package timer

import "errors"

// Store-level failure modes the gateway maps onto wire error codes.
var (
	// ErrAlreadyRunning is returned by StartTimer when the user already has an
	// open session. The store is the source of truth for this invariant.
	ErrAlreadyRunning = errors.New("timer already running for user")

	// ErrStaleSession is returned by StopTimer when the session id is not the
	// user's current open session (already stopped, or never existed).
	ErrStaleSession = errors.New("session is not the current active session")

	// ErrTaskNotFound is returned when the task being timed does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotProjectMember is returned when the user is not a member of the
	// project that owns the task or room.
	ErrNotProjectMember = errors.New("user is not a project member")

	// ErrUserNotFound is returned by identity lookups for unknown credentials.
	ErrUserNotFound = errors.New("user not found")

	// ErrLocationNotFound is returned when a presence location does not exist.
	ErrLocationNotFound = errors.New("location not found")
)
