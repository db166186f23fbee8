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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/auroracast/auroracast/pkg/logger"
)

const defaultPollInterval = 3 * time.Second

// Manager is the authoritative registry of known hosts. It owns the mapping
// from host identity to record, the per-host pollers, and the discovery
// subscription. The registry lock guards the two maps and the polling flag
// only; each Host guards its own fields. The registry lock is never held
// while a state-change notification runs, because handlers may re-enter the
// registry.
type Manager struct {
	mu       sync.RWMutex
	known    map[string]*Host
	pollers  map[string]*hostPoller
	polling  bool
	onChange func(*Host)

	client       StatusClient
	store        Store
	disco        Discoverer
	clock        Clock
	pollInterval time.Duration
	logger       logger.Logger
}

// NewManager builds a registry and loads the persisted host set. Status
// fields of loaded hosts start out Unknown; no pollers run until
// StartPolling. The discoverer may be nil to run without local discovery.
func NewManager(cfg *Config, client StatusClient, store Store, disco Discoverer, clock Clock, log logger.Logger) (*Manager, error) {
	if clock == nil {
		clock = realClock{}
	}

	interval := defaultPollInterval
	if cfg != nil && cfg.PollInterval > 0 {
		interval = time.Duration(cfg.PollInterval)
	}

	m := &Manager{
		known:        make(map[string]*Host),
		pollers:      make(map[string]*hostPoller),
		client:       client,
		store:        store,
		disco:        disco,
		clock:        clock,
		pollInterval: interval,
		logger:       log,
	}

	if err := m.loadHosts(); err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}

	return m, nil
}

func (m *Manager) loadHosts() error {
	records, err := m.store.LoadHosts()
	if err != nil {
		return err
	}

	for _, rec := range records {
		host, err := NewHostFromRecord(rec)
		if err != nil {
			m.logger.Warn().
				Err(err).
				Str("name", rec.Name).
				Msg("Skipping unusable persisted host")

			continue
		}

		m.known[host.UniqueID()] = host
	}

	m.logger.Info().Int("count", len(m.known)).Msg("Loaded known hosts")

	return nil
}

// OnHostStateChanged registers the callback fired after every insert or
// merge that changed a host's state. Register before StartPolling; the
// callback runs without any registry lock held and may re-enter the
// Manager.
func (m *Manager) OnHostStateChanged(fn func(*Host)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// AddNewHost queries the candidate address and folds the result into the
// registry. A query failure returns an error with no state mutated.
// viaDiscovery controls which address slot the candidate address lands in:
// discovery-observed addresses are host-reachable LAN addresses, manual
// ones are user-entered, and the two rank differently in UniqueAddresses.
func (m *Manager) AddNewHost(ctx context.Context, address string, viaDiscovery bool) error {
	// The potentially slow network query runs before any lock is taken.
	info, err := m.client.Query(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to query host at %s: %w", address, err)
	}

	fresh := newHostFromStatus(info, address)

	// fresh is unshared until it enters the map, so direct field access is
	// still safe here.
	if viaDiscovery {
		fresh.localAddress = address
	} else {
		fresh.manualAddress = address
	}

	m.mu.Lock()
	existing, ok := m.known[fresh.UniqueID()]

	if !ok {
		m.known[fresh.UniqueID()] = fresh

		if err := m.startPollingHostLocked(fresh); err != nil {
			m.logger.Error().
				Err(err).
				Str("unique_id", fresh.UniqueID()).
				Msg("Poller bookkeeping inconsistency on insert")
		}

		m.mu.Unlock()

		m.logger.Info().
			Str("unique_id", fresh.UniqueID()).
			Str("name", fresh.Name()).
			Str("address", address).
			Msg("Registered new host")

		m.notifyHostStateChanged(fresh)

		return nil
	}

	// Registry lock is released before touching the existing record's own
	// lock; a poller may be merging into it right now.
	m.mu.Unlock()

	changed, err := existing.Update(fresh)
	if err != nil {
		return err
	}

	if changed {
		m.notifyHostStateChanged(existing)
	}

	return nil
}

// Hosts returns a snapshot of all known host records, sorted by name.
// The returned hosts are live, internally-locked references.
func (m *Manager) Hosts() []*Host {
	m.mu.RLock()
	hosts := make([]*Host, 0, len(m.known))

	for _, h := range m.known {
		hosts = append(hosts, h)
	}
	m.mu.RUnlock()

	// Sorting touches each record's own lock, so it happens after the
	// registry lock is released.
	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Name() < hosts[j].Name()
	})

	return hosts
}

// HostRecords returns value snapshots of all known hosts for consumers
// that must not hold record references.
func (m *Manager) HostRecords() []Record {
	hosts := m.Hosts()

	records := make([]Record, 0, len(hosts))
	for _, h := range hosts {
		records = append(records, h.Snapshot())
	}

	return records
}

// StartPolling enables polling: one poller per known host plus a discovery
// subscription whose resolved addresses funnel back through AddNewHost.
// Calling it while polling is already enabled is a no-op.
func (m *Manager) StartPolling(ctx context.Context) error {
	m.mu.Lock()

	if m.polling {
		m.mu.Unlock()
		return nil
	}

	m.polling = true

	for _, host := range m.known {
		if err := m.startPollingHostLocked(host); err != nil {
			m.logger.Error().
				Err(err).
				Str("unique_id", host.UniqueID()).
				Msg("Poller bookkeeping inconsistency on start")
		}
	}

	m.mu.Unlock()

	m.logger.Info().Msg("Polling started")

	if m.disco == nil {
		return nil
	}

	// Late discovery results are still applied after polling stops: the
	// query result is fresher knowledge either way, and the polling flag
	// decides whether a poller is started for it.
	err := m.disco.Start(ctx, func(address string) {
		if err := m.AddNewHost(context.Background(), address, true); err != nil {
			m.logger.Debug().
				Err(err).
				Str("address", address).
				Msg("Discovered host did not answer a status query")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}

	return nil
}

// StopPollingAsync disables polling without blocking: every poller is asked
// to stop and left to terminate on its own, and in-flight discovery
// resolutions are cancelled, not awaited. Shutdown paths that cannot block
// call this.
func (m *Manager) StopPollingAsync() {
	m.mu.Lock()

	if !m.polling {
		m.mu.Unlock()
		return
	}

	m.polling = false

	if m.disco != nil {
		m.disco.Stop()
	}

	for id, poller := range m.pollers {
		poller.requestStop()
		delete(m.pollers, id)
	}

	m.mu.Unlock()

	m.logger.Info().Msg("Polling stopped")
}

// DeleteHost removes a host from the registry. Unlike StopPollingAsync this
// blocks until the host's poller has fully terminated: the poller holds a
// reference into the record, so the record may not be dropped out from
// under it.
func (m *Manager) DeleteHost(host *Host) error {
	id := host.UniqueID()

	m.mu.Lock()

	if _, ok := m.known[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrHostNotKnown, id)
	}

	if poller, ok := m.pollers[id]; ok {
		poller.requestStop()
		poller.wait()
		delete(m.pollers, id)
	}

	delete(m.known, id)

	m.mu.Unlock()

	m.logger.Info().Str("unique_id", id).Str("name", host.Name()).Msg("Deleted host")

	m.saveHosts()

	return nil
}

// WakeHost sends wake-on-lan packets for the given host and logs the
// outcome.
func (m *Manager) WakeHost(host *Host) error {
	if host.State() == StateOnline {
		m.logger.Warn().Str("name", host.Name()).Msg("Host is already online")
		return nil
	}

	if err := host.Wake(); err != nil {
		m.logger.Error().Err(err).Str("name", host.Name()).Msg("Failed to send wake-on-lan packets")
		return err
	}

	m.logger.Info().Str("name", host.Name()).Msg("Sent wake-on-lan packets")

	return nil
}

// Close stops all polling and flushes the store. The registry is not
// usable afterwards.
func (m *Manager) Close() error {
	m.StopPollingAsync()
	m.saveHosts()

	return m.store.Close()
}

// startPollingHostLocked starts a poller for the host. The registry lock
// must be held for write. Starting a second poller for an identity that
// already has one while polling is enabled is a logic error and reported
// loudly instead of silently ignored.
func (m *Manager) startPollingHostLocked(host *Host) error {
	if !m.polling {
		return nil
	}

	if _, ok := m.pollers[host.UniqueID()]; ok {
		return fmt.Errorf("%w: %s", ErrPollerAlreadyRunning, host.UniqueID())
	}

	// The notification is detached so a poller mid-merge can never hold up
	// DeleteHost, which waits for termination under the registry lock.
	poller := newHostPoller(host, m.client, m.clock, m.pollInterval, func(h *Host) {
		go m.notifyHostStateChanged(h)
	}, m.logger)

	m.pollers[host.UniqueID()] = poller
	poller.start()

	return nil
}

// notifyHostStateChanged fires the state-change callback and then persists
// the full host set. Never called with the registry lock held.
func (m *Manager) notifyHostStateChanged(host *Host) {
	m.mu.RLock()
	fn := m.onChange
	m.mu.RUnlock()

	if fn != nil {
		fn(host)
	}

	m.saveHosts()
}

func (m *Manager) saveHosts() {
	m.mu.RLock()
	hosts := make([]*Host, 0, len(m.known))

	for _, h := range m.known {
		hosts = append(hosts, h)
	}
	m.mu.RUnlock()

	records := make([]Record, 0, len(hosts))
	for _, h := range hosts {
		records = append(records, h.Snapshot())
	}

	if err := m.store.SaveHosts(records); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist known hosts")
	}
}
