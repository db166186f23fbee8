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

package discovery

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroracast/auroracast/pkg/config"
	"github.com/auroracast/auroracast/pkg/logger"
)

func newTestListener(t *testing.T, cfg *Config) *Listener {
	t.Helper()

	return NewListener(cfg, logger.NewTestLogger())
}

func TestNewListenerDefaults(t *testing.T) {
	l := newTestListener(t, nil)

	assert.Equal(t, "_nvstream._tcp", l.serviceType)
	assert.Equal(t, "local.", l.domain)
	assert.Equal(t, 5*time.Second, l.queryInterval)
	assert.Equal(t, 3*time.Second, l.queryTimeout)
}

func TestNewListenerConfigOverrides(t *testing.T) {
	l := newTestListener(t, &Config{
		ServiceType:   "_example._udp",
		Domain:        "lan.",
		QueryInterval: config.Duration(time.Second),
		QueryTimeout:  config.Duration(500 * time.Millisecond),
	})

	assert.Equal(t, "_example._udp", l.serviceType)
	assert.Equal(t, "lan.", l.domain)
	assert.Equal(t, time.Second, l.queryInterval)
	assert.Equal(t, 500*time.Millisecond, l.queryTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "zero config is valid", cfg: Config{}},
		{
			name: "positive intervals are valid",
			cfg: Config{
				QueryInterval: config.Duration(time.Second),
				QueryTimeout:  config.Duration(time.Second),
			},
		},
		{
			name:    "negative interval is rejected",
			cfg:     Config{QueryInterval: config.Duration(-time.Second)},
			wantErr: ErrInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestHandleEntryForwardsIPv4(t *testing.T) {
	l := newTestListener(t, nil)
	l.seen = make(map[string]struct{})

	var (
		mu        sync.Mutex
		addresses []string
	)

	resolved := make(chan struct{}, 1)

	entry := &mdns.ServiceEntry{
		Name:   "GAMING-PC._nvstream._tcp.local.",
		Host:   "GAMING-PC.local.",
		AddrV4: net.IPv4(192, 168, 1, 50),
	}

	l.handleEntry(context.Background(), entry, func(address string) {
		mu.Lock()
		addresses = append(addresses, address)
		mu.Unlock()

		resolved <- struct{}{}
	})

	select {
	case <-resolved:
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, addresses, 1)
	assert.Equal(t, "192.168.1.50", addresses[0])
}

func TestHandleEntryDeduplicatesByName(t *testing.T) {
	l := newTestListener(t, nil)
	l.seen = make(map[string]struct{})

	resolved := make(chan string, 4)

	entry := &mdns.ServiceEntry{
		Name:   "GAMING-PC._nvstream._tcp.local.",
		AddrV4: net.IPv4(192, 168, 1, 50),
	}

	onResolved := func(address string) { resolved <- address }

	l.handleEntry(context.Background(), entry, onResolved)
	l.handleEntry(context.Background(), entry, onResolved)
	l.handleEntry(context.Background(), entry, onResolved)

	select {
	case <-resolved:
	case <-time.After(time.Second):
		t.Fatal("first entry was not forwarded")
	}

	select {
	case addr := <-resolved:
		t.Fatalf("duplicate entry was forwarded: %s", addr)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleEntryIgnoresNil(t *testing.T) {
	l := newTestListener(t, nil)
	l.seen = make(map[string]struct{})

	l.handleEntry(context.Background(), nil, func(string) {
		t.Fatal("callback must not run for a nil entry")
	})
}

func TestStartTwiceReturnsError(t *testing.T) {
	l := newTestListener(t, &Config{
		QueryInterval: config.Duration(time.Hour),
		QueryTimeout:  config.Duration(time.Millisecond),
	})

	require.NoError(t, l.Start(context.Background(), func(string) {}))
	defer l.Stop()

	err := l.Start(context.Background(), func(string) {})
	require.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStopIsNonBlockingAndIdempotent(t *testing.T) {
	l := newTestListener(t, &Config{
		QueryInterval: config.Duration(time.Hour),
		QueryTimeout:  config.Duration(time.Millisecond),
	})

	require.NoError(t, l.Start(context.Background(), func(string) {}))

	done := make(chan struct{})

	go func() {
		defer close(done)

		l.Stop()
		l.Stop()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked")
	}

	// A stopped listener can be started again with a fresh dedupe set.
	require.NoError(t, l.Start(context.Background(), func(string) {}))
	l.Stop()
}
