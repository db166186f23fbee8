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
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroracast/auroracast/pkg/serverinfo"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()

	mac, err := net.ParseMAC(s)
	require.NoError(t, err)

	return mac
}

func TestNewHostFromRecordRequiresUniqueID(t *testing.T) {
	_, err := NewHostFromRecord(Record{Name: "NAMELESS"})
	require.Error(t, err)
}

func TestNewHostFromRecordResetsStatusFields(t *testing.T) {
	host, err := NewHostFromRecord(Record{
		UniqueID:      "abcd",
		Name:          "OFFICE-PC",
		MACAddress:    mustMAC(t, "aa:bb:cc:dd:ee:ff"),
		ActiveAddress: "192.168.1.50",
		LocalAddress:  "192.168.1.50",
		ManualAddress: "office.example.com",
		PairState:     Paired,
		State:         StateOnline,
		CurrentAppID:  42,
	})
	require.NoError(t, err)

	snap := host.Snapshot()

	// Persisted bookkeeping survives.
	assert.Equal(t, "abcd", snap.UniqueID)
	assert.Equal(t, "OFFICE-PC", snap.Name)
	assert.Equal(t, mustMAC(t, "aa:bb:cc:dd:ee:ff"), snap.MACAddress)
	assert.Equal(t, "192.168.1.50", snap.LocalAddress)
	assert.Equal(t, "office.example.com", snap.ManualAddress)

	// Status starts out unknown until something observes the host live.
	assert.Equal(t, StateUnknown, snap.State)
	assert.Equal(t, PairUnknown, snap.PairState)
	assert.Empty(t, snap.ActiveAddress)
	assert.Zero(t, snap.CurrentAppID)
}

func TestNewHostFromStatus(t *testing.T) {
	info := &serverinfo.ServerInfo{
		Hostname:         "GAMING-PC",
		UniqueID:         "abcd",
		MAC:              "aa:bb:cc:dd:ee:ff",
		CodecModeSupport: 0x10001,
		LocalIP:          "192.168.1.50",
		ExternalIP:       "203.0.113.9",
		PairStatus:       "1",
		CurrentGame:      7,
		AppVersion:       "7.1.450.0",
		ServerVersion:    "3.23.0.74",
	}

	host := newHostFromStatus(info, "192.168.1.50")
	snap := host.Snapshot()

	assert.Equal(t, "abcd", snap.UniqueID)
	assert.Equal(t, "GAMING-PC", snap.Name)
	assert.Equal(t, StateOnline, snap.State)
	assert.Equal(t, Paired, snap.PairState)
	assert.Equal(t, "192.168.1.50", snap.ActiveAddress)
	assert.Equal(t, "192.168.1.50", snap.LocalAddress)
	assert.Equal(t, "203.0.113.9", snap.RemoteAddress)
	assert.Equal(t, 7, snap.CurrentAppID)
}

func TestNewHostFromStatusDefaultsName(t *testing.T) {
	host := newHostFromStatus(&serverinfo.ServerInfo{UniqueID: "abcd"}, "192.168.1.50")
	assert.Equal(t, "UNKNOWN", host.Name())
}

func TestUniqueAddresses(t *testing.T) {
	tests := []struct {
		name    string
		host    *Host
		want    []string
		wantErr error
	}{
		{
			name: "priority order",
			host: &Host{
				uniqueID:      "abcd",
				activeAddress: "a",
				localAddress:  "b",
				remoteAddress: "c",
				manualAddress: "d",
			},
			want: []string{"a", "b", "c", "d"},
		},
		{
			name: "duplicates collapse to first occurrence",
			host: &Host{
				uniqueID:      "abcd",
				activeAddress: "a",
				localAddress:  "a",
				remoteAddress: "c",
				manualAddress: "c",
			},
			want: []string{"a", "c"},
		},
		{
			name: "empty slots are skipped",
			host: &Host{
				uniqueID:      "abcd",
				remoteAddress: "c",
			},
			want: []string{"c"},
		},
		{
			name:    "no addresses at all",
			host:    &Host{uniqueID: "abcd"},
			wantErr: ErrNoKnownAddresses,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.host.UniqueAddresses()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdateRejectsMismatchedIdentity(t *testing.T) {
	a := &Host{uniqueID: "abcd"}
	b := &Host{uniqueID: "efgh"}

	changed, err := a.Update(b)
	require.ErrorIs(t, err, ErrUniqueIDMismatch)
	assert.False(t, changed)
}

func TestUpdateSelfAndNilAreNoOps(t *testing.T) {
	h := &Host{uniqueID: "abcd", name: "OFFICE-PC"}

	changed, err := h.Update(h)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = h.Update(nil)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestUpdateAlwaysTracksStatusFields(t *testing.T) {
	h := &Host{
		uniqueID:      "abcd",
		name:          "OLD-NAME",
		pairState:     Paired,
		state:         StateOnline,
		activeAddress: "192.168.1.50",
		currentAppID:  7,
	}

	fresh := &Host{
		uniqueID:      "abcd",
		name:          "NEW-NAME",
		pairState:     NotPaired,
		state:         StateOnline,
		activeAddress: "192.168.1.60",
	}

	changed, err := h.Update(fresh)
	require.NoError(t, err)
	assert.True(t, changed)

	snap := h.Snapshot()
	assert.Equal(t, "NEW-NAME", snap.Name)
	assert.Equal(t, NotPaired, snap.PairState)
	assert.Equal(t, "192.168.1.60", snap.ActiveAddress)
	assert.Zero(t, snap.CurrentAppID)
}

func TestUpdateEmptyObservationsDoNotEraseLearnedFields(t *testing.T) {
	h := &Host{
		uniqueID:      "abcd",
		name:          "OFFICE-PC",
		macAddress:    mustMAC(t, "aa:bb:cc:dd:ee:ff"),
		localAddress:  "192.168.1.50",
		remoteAddress: "203.0.113.9",
		manualAddress: "office.example.com",
		apps:          []App{{ID: 1, Name: "Desktop"}},
	}

	fresh := &Host{
		uniqueID: "abcd",
		name:     "OFFICE-PC",
	}

	_, err := h.Update(fresh)
	require.NoError(t, err)

	snap := h.Snapshot()
	assert.Equal(t, mustMAC(t, "aa:bb:cc:dd:ee:ff"), snap.MACAddress)
	assert.Equal(t, "192.168.1.50", snap.LocalAddress)
	assert.Equal(t, "203.0.113.9", snap.RemoteAddress)
	assert.Equal(t, "office.example.com", snap.ManualAddress)
	assert.Equal(t, []App{{ID: 1, Name: "Desktop"}}, snap.Apps)
}

func TestUpdateNonEmptyObservationsOverwrite(t *testing.T) {
	h := &Host{
		uniqueID:     "abcd",
		macAddress:   mustMAC(t, "aa:bb:cc:dd:ee:ff"),
		localAddress: "192.168.1.50",
	}

	fresh := &Host{
		uniqueID:     "abcd",
		macAddress:   mustMAC(t, "11:22:33:44:55:66"),
		localAddress: "192.168.1.60",
		apps:         []App{{ID: 2, Name: "Steam", HDRSupported: true}},
	}

	changed, err := h.Update(fresh)
	require.NoError(t, err)
	assert.True(t, changed)

	snap := h.Snapshot()
	assert.Equal(t, mustMAC(t, "11:22:33:44:55:66"), snap.MACAddress)
	assert.Equal(t, "192.168.1.60", snap.LocalAddress)
	assert.Equal(t, []App{{ID: 2, Name: "Steam", HDRSupported: true}}, snap.Apps)
}

func TestUpdateIsIdempotent(t *testing.T) {
	h := &Host{uniqueID: "abcd", name: "OFFICE-PC"}

	fresh := &Host{
		uniqueID:      "abcd",
		name:          "OFFICE-PC-2",
		state:         StateOnline,
		activeAddress: "192.168.1.50",
		localAddress:  "192.168.1.50",
	}

	changed, err := h.Update(fresh)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = h.Update(fresh)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMarkOffline(t *testing.T) {
	h := &Host{uniqueID: "abcd", state: StateOnline}

	assert.True(t, h.markOffline())
	assert.Equal(t, StateOffline, h.State())

	// Already offline, nothing changes.
	assert.False(t, h.markOffline())
}

func TestSnapshotIsDetached(t *testing.T) {
	h := &Host{
		uniqueID:   "abcd",
		macAddress: mustMAC(t, "aa:bb:cc:dd:ee:ff"),
		apps:       []App{{ID: 1, Name: "Desktop"}},
	}

	snap := h.Snapshot()
	snap.MACAddress[0] = 0x00
	snap.Apps[0].Name = "Mutated"

	again := h.Snapshot()
	assert.Equal(t, mustMAC(t, "aa:bb:cc:dd:ee:ff"), again.MACAddress)
	assert.Equal(t, "Desktop", again.Apps[0].Name)
}
