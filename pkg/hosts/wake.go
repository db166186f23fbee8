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
	"strconv"
)

const (
	macAddressSize  = 6
	wakePayloadSize = 102

	// linkBroadcastAddress is always tried in addition to the host's known
	// addresses, in case the host has aged out of ARP caches.
	linkBroadcastAddress = "255.255.255.255"
)

// wakePorts are the UDP ports a wake packet is sent to: the standard
// wake-on-lan ports plus the ports streaming hosts keep open.
var wakePorts = []int{7, 9, 47998, 47999, 48000}

// Wake broadcasts a wake-on-lan magic packet to every known address of the
// host on every candidate port. This is best effort: a single successful
// send counts as success, and no send confirms the host actually woke.
func (h *Host) Wake() error {
	h.mu.RLock()
	state := h.state
	mac := h.macAddress
	addresses, addrErr := h.uniqueAddressesLocked()
	h.mu.RUnlock()

	if state == StateOnline {
		return nil
	}

	if len(mac) != macAddressSize {
		return ErrNoMACAddress
	}

	if addrErr != nil {
		return addrErr
	}

	payload := magicPacket(mac)
	addresses = append(addresses, linkBroadcastAddress)

	sent := false

	for _, address := range addresses {
		// Addresses may be hostnames; try every IP each one resolves to,
		// on that IP's own address family.
		ips, err := net.LookupIP(address)
		if err != nil {
			continue
		}

		for _, ip := range ips {
			for _, port := range wakePorts {
				if err := sendWakePacket(payload, ip, port); err == nil {
					sent = true
				}
			}
		}
	}

	if !sent {
		return ErrWakeSendFailed
	}

	return nil
}

// magicPacket builds the standard 102-byte wake-on-lan payload: six 0xFF
// bytes followed by the MAC address repeated sixteen times.
func magicPacket(mac net.HardwareAddr) []byte {
	payload := make([]byte, 0, wakePayloadSize)

	for i := 0; i < macAddressSize; i++ {
		payload = append(payload, 0xFF)
	}

	for i := 0; i < 16; i++ {
		payload = append(payload, mac...)
	}

	return payload
}

func sendWakePacket(payload []byte, ip net.IP, port int) error {
	conn, err := net.Dial("udp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	_, err = conn.Write(payload)

	return err
}
