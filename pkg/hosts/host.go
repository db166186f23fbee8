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
	"bytes"
	"fmt"
	"net"
	"slices"
	"sync"

	"github.com/auroracast/auroracast/pkg/serverinfo"
)

// Host is the in-memory record of one remote streaming host. Every field is
// guarded by the record's own lock; the record is mutated in place and never
// replaced once registered, because pollers hold references into it.
type Host struct {
	mu sync.RWMutex

	// uniqueID is immutable after construction.
	uniqueID string

	name             string
	macAddress       net.HardwareAddr
	codecModeSupport int

	// Address slots in priority order: active (last successfully used),
	// local (host-reported LAN), remote (host-reported external), and
	// manual (user-entered, never reported by the host itself).
	activeAddress string
	localAddress  string
	remoteAddress string
	manualAddress string

	pairState    PairState
	state        ConnectionState
	currentAppID int

	serverVersion string
	appVersion    string

	apps []App
}

// NewHostFromRecord restores a persisted host. Status fields always start
// out Unknown; only discovery and polling may mark a host online.
func NewHostFromRecord(rec Record) (*Host, error) {
	if rec.UniqueID == "" {
		return nil, errEmptyUniqueID
	}

	return &Host{
		uniqueID:         rec.UniqueID,
		name:             rec.Name,
		macAddress:       slices.Clone(rec.MACAddress),
		codecModeSupport: rec.CodecModeSupport,
		localAddress:     rec.LocalAddress,
		remoteAddress:    rec.RemoteAddress,
		manualAddress:    rec.ManualAddress,
		apps:             slices.Clone(rec.Apps),
	}, nil
}

// newHostFromStatus builds a transient host from a live status document.
// address is the address the query was answered on, so the host starts out
// Online with that address active.
func newHostFromStatus(info *serverinfo.ServerInfo, address string) *Host {
	name := info.Hostname
	if name == "" {
		name = "UNKNOWN"
	}

	pairState := NotPaired
	if info.Paired() {
		pairState = Paired
	}

	return &Host{
		uniqueID:         info.UniqueID,
		name:             name,
		macAddress:       info.HardwareAddr(),
		codecModeSupport: info.CodecModeSupport,
		activeAddress:    address,
		localAddress:     info.LocalIP,
		remoteAddress:    info.ExternalIP,
		pairState:        pairState,
		state:            StateOnline,
		currentAppID:     info.CurrentGame,
		serverVersion:    info.ServerVersion,
		appVersion:       info.AppVersion,
	}
}

// UniqueID returns the host's immutable identity.
func (h *Host) UniqueID() string {
	return h.uniqueID
}

// Name returns the host's last known name.
func (h *Host) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.name
}

// State returns the host's last observed connection state.
func (h *Host) State() ConnectionState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.state
}

// Snapshot returns a copy of every field for lock-free consumption.
func (h *Host) Snapshot() Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Record{
		UniqueID:         h.uniqueID,
		Name:             h.name,
		MACAddress:       slices.Clone(h.macAddress),
		CodecModeSupport: h.codecModeSupport,
		ActiveAddress:    h.activeAddress,
		LocalAddress:     h.localAddress,
		RemoteAddress:    h.remoteAddress,
		ManualAddress:    h.manualAddress,
		PairState:        h.pairState,
		State:            h.state,
		CurrentAppID:     h.currentAppID,
		ServerVersion:    h.serverVersion,
		AppVersion:       h.appVersion,
		Apps:             slices.Clone(h.apps),
	}
}

// UniqueAddresses returns the de-duplicated candidate addresses in priority
// order: active, then local, then remote, then manual. The first occurrence
// of a duplicate wins. A host with no addresses at all is not actionable.
func (h *Host) UniqueAddresses() ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.uniqueAddressesLocked()
}

func (h *Host) uniqueAddressesLocked() ([]string, error) {
	ordered := []string{h.activeAddress, h.localAddress, h.remoteAddress, h.manualAddress}

	unique := make([]string, 0, len(ordered))
	seen := make(map[string]struct{}, len(ordered))

	for _, addr := range ordered {
		if addr == "" {
			continue
		}

		if _, ok := seen[addr]; ok {
			continue
		}

		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}

	if len(unique) == 0 {
		return nil, ErrNoKnownAddresses
	}

	return unique, nil
}

// Update merges a freshly observed record for the same identity into h and
// reports whether anything changed. State fields always track the latest
// observation; identity-ish fields (MAC, local/remote/manual address, app
// list) are only overwritten by a non-empty observation, so a transient
// query that omits them cannot erase learned or user-entered data.
//
// Merging a record with a different unique id is a caller bug and fails
// with ErrUniqueIDMismatch. Merging a host into itself is a no-op.
func (h *Host) Update(other *Host) (bool, error) {
	if other == nil || other == h {
		return false, nil
	}

	if h.uniqueID != other.uniqueID {
		return false, fmt.Errorf("%w: %q != %q", ErrUniqueIDMismatch, h.uniqueID, other.uniqueID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	other.mu.RLock()
	defer other.mu.RUnlock()

	changed := false

	if h.name != other.name {
		h.name = other.name
		changed = true
	}

	if h.pairState != other.pairState {
		h.pairState = other.pairState
		changed = true
	}

	if h.codecModeSupport != other.codecModeSupport {
		h.codecModeSupport = other.codecModeSupport
		changed = true
	}

	if h.currentAppID != other.currentAppID {
		h.currentAppID = other.currentAppID
		changed = true
	}

	if h.activeAddress != other.activeAddress {
		h.activeAddress = other.activeAddress
		changed = true
	}

	if h.state != other.state {
		h.state = other.state
		changed = true
	}

	if h.serverVersion != other.serverVersion {
		h.serverVersion = other.serverVersion
		changed = true
	}

	if h.appVersion != other.appVersion {
		h.appVersion = other.appVersion
		changed = true
	}

	if len(other.macAddress) != 0 && !bytes.Equal(h.macAddress, other.macAddress) {
		h.macAddress = slices.Clone(other.macAddress)
		changed = true
	}

	if other.localAddress != "" && h.localAddress != other.localAddress {
		h.localAddress = other.localAddress
		changed = true
	}

	if other.remoteAddress != "" && h.remoteAddress != other.remoteAddress {
		h.remoteAddress = other.remoteAddress
		changed = true
	}

	if other.manualAddress != "" && h.manualAddress != other.manualAddress {
		h.manualAddress = other.manualAddress
		changed = true
	}

	if len(other.apps) != 0 && !slices.Equal(h.apps, other.apps) {
		h.apps = slices.Clone(other.apps)
		changed = true
	}

	return changed, nil
}

// markOffline transitions the host to Offline after a failed poll pass and
// reports whether that was a change.
func (h *Host) markOffline() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateOffline {
		return false
	}

	h.state = StateOffline

	return true
}
