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

// Package serverinfo queries streaming hosts for their status document.
package serverinfo

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/auroracast/auroracast/pkg/logger"
	"github.com/google/uuid"
)

const (
	// DefaultPort is the HTTP port streaming hosts serve status on.
	DefaultPort = 47989

	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20 // status documents are a few KB at most
)

// Client fetches status documents over HTTP. Queries are synchronous from
// the caller's perspective; cancellation flows through the request context.
type Client struct {
	httpClient *http.Client
	port       int
	clientUID  string
	logger     logger.Logger
}

// NewClient creates a status-query client. clientUID identifies this client
// installation to hosts and is sent with every request.
func NewClient(cfg *Config, clientUID string, log logger.Logger) *Client {
	port := DefaultPort
	timeout := defaultTimeout

	if cfg != nil {
		if cfg.Port != 0 {
			port = cfg.Port
		}

		if cfg.Timeout != 0 {
			timeout = time.Duration(cfg.Timeout)
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		port:       port,
		clientUID:  clientUID,
		logger:     log,
	}
}

// Query fetches and parses the status document of the host at address.
// Any transport, HTTP, or document-level failure is returned as an error
// without further interpretation.
func (c *Client) Query(ctx context.Context, address string) (*ServerInfo, error) {
	query := url.Values{}
	query.Set("uniqueid", c.clientUID)
	query.Set("uuid", uuid.NewString())

	reqURL := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(address, strconv.Itoa(c.port)),
		Path:     "/serverinfo",
		RawQuery: query.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request for %s: %w", address, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request to %s failed: %w", address, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w from %s: %d", errUnexpectedStatus, address, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read status response from %s: %w", address, err)
	}

	var info ServerInfo
	if err := xml.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse status response from %s: %w", address, err)
	}

	if info.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status_code %d", ErrRequestRejected, info.StatusCode)
	}

	if info.UniqueID == "" {
		return nil, ErrMissingUniqueID
	}

	c.logger.Debug().
		Str("address", address).
		Str("unique_id", info.UniqueID).
		Str("hostname", info.Hostname).
		Msg("Fetched host status")

	return &info, nil
}
