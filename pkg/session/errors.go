package session

import "errors"

// ErrSessionNotFound is returned by Append when sessionID names no known
// session (it was evicted, or never created via GetOrCreate).
var ErrSessionNotFound = errors.New("session: not found")
