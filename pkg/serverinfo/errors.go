package serverinfo

import "errors"

var (
	ErrInvalidPort      = errors.New("invalid serverinfo port")
	ErrRequestRejected  = errors.New("host rejected the status request")
	ErrMissingUniqueID  = errors.New("host reported no unique id")
	errUnexpectedStatus = errors.New("unexpected HTTP status")
)
