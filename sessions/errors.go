package sessions

import "errors"

// Session registry sentinel errors. The ws and api packages check them with errors.Is.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrNotOwner        = errors.New("session belongs to another user")
)
