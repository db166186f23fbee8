package hosts

//go:generate mockgen -destination=mock_hosts.go -package=hosts github.com/auroracast/auroracast/pkg/hosts StatusClient,Store,Discoverer,Clock,Ticker

import (
	"context"
	"time"

	"github.com/auroracast/auroracast/pkg/serverinfo"
)

// StatusClient queries a candidate address for its current status document.
// Implementations must be safe for concurrent use; every failure mode is
// reported as an error, never a panic.
type StatusClient interface {
	Query(ctx context.Context, address string) (*serverinfo.ServerInfo, error)
}

// Store persists the known-host set as an ordered set of records.
// SaveHosts replaces the entire stored set.
type Store interface {
	LoadHosts() ([]Record, error)
	SaveHosts(records []Record) error
	Close() error
}

// Discoverer announces addresses of hosts advertising the streaming service
// on the local network. Stop must not block on in-flight resolutions.
type Discoverer interface {
	Start(ctx context.Context, onResolved func(address string)) error
	Stop()
}

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}
