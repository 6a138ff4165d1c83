package proctoring

import "errors"

var (
	ErrSessionNotStarted     = errors.New("proctoring session has not been started")
	ErrSessionAlreadyStarted = errors.New("proctoring session already started")
	ErrSessionEnded          = errors.New("proctoring session has ended")
	ErrInvalidSample         = errors.New("invalid detection sample")
	ErrInvalidConfig         = errors.New("invalid detection config")
)
