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

// Package hosts manages the set of known remote streaming hosts: discovery
// intake, persistence, state merging, and one background poller per host.
package hosts

import (
	"net"

	"github.com/auroracast/auroracast/pkg/config"
)

// PairState describes whether this client is paired with a host.
type PairState int

const (
	PairUnknown PairState = iota
	Paired
	NotPaired
)

func (s PairState) String() string {
	switch s {
	case Paired:
		return "paired"
	case NotPaired:
		return "not_paired"
	default:
		return "unknown"
	}
}

// ConnectionState describes the last observed reachability of a host.
type ConnectionState int

const (
	StateUnknown ConnectionState = iota
	StateOnline
	StateOffline
)

func (s ConnectionState) String() string {
	switch s {
	case StateOnline:
		return "online"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// App is one streamable application advertised by a host.
type App struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	HDRSupported bool   `json:"hdr_supported"`
}

// Record is the plain snapshot form of a Host, used for persistence and by
// UI consumers that must not hold the record's lock.
type Record struct {
	UniqueID         string
	Name             string
	MACAddress       net.HardwareAddr
	CodecModeSupport int
	ActiveAddress    string
	LocalAddress     string
	RemoteAddress    string
	ManualAddress    string
	PairState        PairState
	State            ConnectionState
	CurrentAppID     int
	ServerVersion    string
	AppVersion       string
	Apps             []App
}

// Config holds the registry's tunables.
type Config struct {
	// PollInterval is how often each host poller re-queries its host.
	PollInterval config.Duration `json:"poll_interval"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.PollInterval < 0 {
		return ErrInvalidPollInterval
	}

	return nil
}
