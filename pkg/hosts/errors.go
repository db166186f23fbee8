package hosts

import "errors"

var (
	ErrUniqueIDMismatch     = errors.New("host unique id mismatch")
	ErrNoKnownAddresses     = errors.New("host has no known addresses")
	ErrNoMACAddress         = errors.New("host has no known MAC address")
	ErrWakeSendFailed       = errors.New("no wake-on-lan packet could be sent")
	ErrPollerAlreadyRunning = errors.New("a poller is already running for this host")
	ErrHostNotKnown         = errors.New("host is not known to the registry")
	ErrInvalidPollInterval  = errors.New("poll interval must not be negative")

	errEmptyUniqueID = errors.New("host record has no unique id")
)
