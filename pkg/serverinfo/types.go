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

package serverinfo

import (
	"encoding/xml"
	"net"

	"github.com/auroracast/auroracast/pkg/config"
)

// unknownMAC is what hosts report when they have no usable interface MAC.
const unknownMAC = "00:00:00:00:00:00"

// ServerInfo is the status document a streaming host serves at /serverinfo.
type ServerInfo struct {
	XMLName          xml.Name `xml:"root"`
	StatusCode       int      `xml:"status_code,attr"`
	Hostname         string   `xml:"hostname"`
	UniqueID         string   `xml:"uniqueid"`
	MAC              string   `xml:"mac"`
	CodecModeSupport int      `xml:"ServerCodecModeSupport"`
	LocalIP          string   `xml:"LocalIP"`
	ExternalIP       string   `xml:"ExternalIP"`
	PairStatus       string   `xml:"PairStatus"`
	CurrentGame      int      `xml:"currentgame"`
	AppVersion       string   `xml:"appversion"`
	ServerVersion    string   `xml:"GfeVersion"`
}

// HardwareAddr parses the reported MAC address. It returns nil when the host
// reported no MAC, the all-zero placeholder, or an unparsable value.
func (s *ServerInfo) HardwareAddr() net.HardwareAddr {
	if s.MAC == "" || s.MAC == unknownMAC {
		return nil
	}

	mac, err := net.ParseMAC(s.MAC)
	if err != nil {
		return nil
	}

	return mac
}

// Paired reports whether the host considers this client paired.
func (s *ServerInfo) Paired() bool {
	return s.PairStatus == "1"
}

// Config controls how the status-query client reaches hosts.
type Config struct {
	Port    int             `json:"port"`
	Timeout config.Duration `json:"timeout"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return ErrInvalidPort
	}

	return nil
}
