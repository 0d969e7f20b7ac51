package client

import "errors"

var (
	// ErrServerNotRunning wraps connection failures so callers can tell
	// "nothing is listening" apart from a server-side error.
	ErrServerNotRunning = errors.New("framesink server not running")

	// ErrRejected marks 4xx responses: the server is up but refused the
	// payload.
	ErrRejected = errors.New("request rejected by server")
)
