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

package hosts

import (
	"context"
	"sync"
	"time"

	"github.com/auroracast/auroracast/pkg/logger"
)

// hostPoller periodically re-queries one host and merges the result back
// into its record. One poller runs per actively polled host; the Manager
// owns the lifecycle.
type hostPoller struct {
	host     *Host
	client   StatusClient
	clock    Clock
	interval time.Duration

	// onChange must never block on the registry lock; the Manager wires a
	// detached notification here so DeleteHost can wait for termination
	// while holding the registry lock.
	onChange func(*Host)
	logger   logger.Logger

	stopOnce   sync.Once
	done       chan struct{}
	terminated chan struct{}
}

func newHostPoller(host *Host, client StatusClient, clock Clock, interval time.Duration, onChange func(*Host), log logger.Logger) *hostPoller {
	return &hostPoller{
		host:       host,
		client:     client,
		clock:      clock,
		interval:   interval,
		onChange:   onChange,
		logger:     log,
		done:       make(chan struct{}),
		terminated: make(chan struct{}),
	}
}

// start launches the polling goroutine.
func (p *hostPoller) start() {
	go p.run()
}

func (p *hostPoller) run() {
	defer close(p.terminated)

	p.pollOnce()

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.Chan():
			p.pollOnce()
		}
	}
}

// requestStop asks the poller to stop without waiting for it. Safe to call
// more than once.
func (p *hostPoller) requestStop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
}

// wait blocks until the polling goroutine has fully terminated. Only
// DeleteHost needs this; every other stop path is fire and forget.
func (p *hostPoller) wait() {
	<-p.terminated
}

// pollOnce walks the host's candidate addresses in priority order until one
// answers. A successful answer merges in as a fresh Online observation with
// that address active; total failure marks the host Offline.
func (p *hostPoller) pollOnce() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cut the in-flight query short when a stop is requested.
	go func() {
		select {
		case <-p.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	addresses, err := p.host.UniqueAddresses()
	if err != nil {
		p.logger.Warn().
			Str("unique_id", p.host.UniqueID()).
			Msg("Host has no addresses to poll")

		return
	}

	var fresh *Host

	for _, address := range addresses {
		info, queryErr := p.client.Query(ctx, address)
		if queryErr != nil {
			p.logger.Debug().
				Err(queryErr).
				Str("address", address).
				Str("unique_id", p.host.UniqueID()).
				Msg("Host poll attempt failed")

			continue
		}

		fresh = newHostFromStatus(info, address)

		break
	}

	var changed bool

	if fresh == nil {
		// A stop request cancels the in-flight query, which surfaces here
		// as a failed pass. That is teardown, not an observation of the
		// host, so it must not drive a state transition.
		select {
		case <-p.done:
			return
		default:
		}

		changed = p.host.markOffline()
	} else {
		changed, err = p.host.Update(fresh)
		if err != nil {
			// The address now answers with a different identity, likely a
			// reassigned IP. Skip the observation rather than corrupt the
			// record.
			p.logger.Error().
				Err(err).
				Str("unique_id", p.host.UniqueID()).
				Msg("Discarding poll result for mismatched identity")

			return
		}
	}

	if changed && p.onChange != nil {
		p.onChange(p.host)
	}
}
