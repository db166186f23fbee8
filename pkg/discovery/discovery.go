/*
 * Copyright 2026 AuroraCast Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package discovery finds streaming hosts advertising on the local network
// via multicast DNS.
package discovery

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/auroracast/auroracast/pkg/config"
	"github.com/auroracast/auroracast/pkg/logger"
)

const (
	defaultServiceType   = "_nvstream._tcp"
	defaultDomain        = "local."
	defaultQueryInterval = 5 * time.Second
	defaultQueryTimeout  = 3 * time.Second

	entryBuffer = 16
)

// Config controls the mDNS browse behavior.
type Config struct {
	ServiceType   string          `json:"service_type"`
	Domain        string          `json:"domain"`
	QueryInterval config.Duration `json:"query_interval"`
	QueryTimeout  config.Duration `json:"query_timeout"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.QueryInterval < 0 || c.QueryTimeout < 0 {
		return ErrInvalidInterval
	}

	return nil
}

// Listener browses for service advertisements and resolves each one to an
// IPv4 address. Resolved addresses are forwarded to the callback given to
// Start, each on its own short-lived goroutine, so a slow callback never
// stalls the browse loop.
type Listener struct {
	serviceType   string
	domain        string
	queryInterval time.Duration
	queryTimeout  time.Duration
	resolver      *net.Resolver
	logger        logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	seen    map[string]struct{}
}

// NewListener creates an mDNS listener. Zero config fields fall back to
// the streaming service defaults.
func NewListener(cfg *Config, log logger.Logger) *Listener {
	l := &Listener{
		serviceType:   defaultServiceType,
		domain:        defaultDomain,
		queryInterval: defaultQueryInterval,
		queryTimeout:  defaultQueryTimeout,
		resolver:      net.DefaultResolver,
		logger:        log,
	}

	if cfg != nil {
		if cfg.ServiceType != "" {
			l.serviceType = cfg.ServiceType
		}

		if cfg.Domain != "" {
			l.domain = cfg.Domain
		}

		if cfg.QueryInterval > 0 {
			l.queryInterval = time.Duration(cfg.QueryInterval)
		}

		if cfg.QueryTimeout > 0 {
			l.queryTimeout = time.Duration(cfg.QueryTimeout)
		}
	}

	return l
}

// Start begins browsing and returns immediately.
func (l *Listener) Start(ctx context.Context, onResolved func(address string)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true
	l.seen = make(map[string]struct{})

	go l.browse(ctx, onResolved)

	return nil
}

// Stop cancels browsing and all in-flight resolution tasks without waiting
// for them to terminate.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}

	l.cancel()
	l.cancel = nil
	l.running = false
}

func (l *Listener) browse(ctx context.Context, onResolved func(string)) {
	l.runQuery(ctx, onResolved)

	ticker := time.NewTicker(l.queryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.runQuery(ctx, onResolved)
		}
	}
}

// runQuery performs one mDNS query round and hands every discovered entry
// off for resolution.
func (l *Listener) runQuery(ctx context.Context, onResolved func(string)) {
	entries := make(chan *mdns.ServiceEntry, entryBuffer)
	drained := make(chan struct{})

	go func() {
		defer close(drained)

		for entry := range entries {
			l.handleEntry(ctx, entry, onResolved)
		}
	}()

	params := &mdns.QueryParam{
		Service:     l.serviceType,
		Domain:      l.domain,
		Timeout:     l.queryTimeout,
		Entries:     entries,
		DisableIPv6: true,
	}

	if err := mdns.Query(params); err != nil {
		l.logger.Debug().Err(err).Str("service", l.serviceType).Msg("mDNS query failed")
	}

	close(entries)
	<-drained
}

// handleEntry forwards a newly seen advertisement. Entries are deduplicated
// by service instance name for the lifetime of the listener; a host that
// re-announces is already being tracked by its poller.
func (l *Listener) handleEntry(ctx context.Context, entry *mdns.ServiceEntry, onResolved func(string)) {
	if entry == nil {
		return
	}

	l.mu.Lock()
	if _, ok := l.seen[entry.Name]; ok {
		l.mu.Unlock()
		return
	}

	l.seen[entry.Name] = struct{}{}
	l.mu.Unlock()

	l.logger.Debug().
		Str("service", entry.Name).
		Str("hostname", entry.Host).
		Msg("Discovered mDNS service")

	if entry.AddrV4 != nil {
		address := entry.AddrV4.String()

		go func() {
			select {
			case <-ctx.Done():
			default:
				onResolved(address)
			}
		}()

		return
	}

	// The advertisement carried no A record; resolve the hostname in a
	// task that dies with the listener context.
	go l.resolve(ctx, entry.Host, onResolved)
}

func (l *Listener) resolve(ctx context.Context, hostname string, onResolved func(string)) {
	rctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	ips, err := l.resolver.LookupIP(rctx, "ip4", strings.TrimSuffix(hostname, "."))
	if err != nil || len(ips) == 0 {
		l.logger.Debug().Err(err).Str("hostname", hostname).Msg("mDNS hostname resolution failed")
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	l.logger.Debug().
		Str("hostname", hostname).
		Str("address", ips[0].String()).
		Msg("Resolved mDNS service")

	onResolved(ips[0].String())
}
