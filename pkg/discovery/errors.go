package discovery

import "errors"

var (
	ErrAlreadyStarted  = errors.New("listener already started")
	ErrInvalidInterval = errors.New("query intervals must not be negative")
)
