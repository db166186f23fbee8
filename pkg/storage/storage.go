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

// Package storage persists the known-host set in a local SQLite database.
package storage

import (
	"database/sql"
	"fmt"
	"net"

	_ "github.com/mattn/go-sqlite3"

	"github.com/auroracast/auroracast/pkg/hosts"
	"github.com/auroracast/auroracast/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS hosts (
    unique_id          TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    mac_address        TEXT NOT NULL DEFAULT '',
    codec_mode_support INTEGER NOT NULL DEFAULT 0,
    local_address      TEXT NOT NULL DEFAULT '',
    remote_address     TEXT NOT NULL DEFAULT '',
    manual_address     TEXT NOT NULL DEFAULT '',
    pair_state         INTEGER NOT NULL DEFAULT 0,
    server_version     TEXT NOT NULL DEFAULT '',
    app_version        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS host_apps (
    host_unique_id TEXT NOT NULL,
    app_id         INTEGER NOT NULL,
    name           TEXT NOT NULL,
    hdr_supported  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (host_unique_id, app_id),
    FOREIGN KEY (host_unique_id) REFERENCES hosts(unique_id) ON DELETE CASCADE
);
`

// HostStore is a SQLite-backed implementation of hosts.Store. Connection
// state and addresses observed via discovery are deliberately volatile:
// only identity, pairing, and address bookkeeping survive a restart.
type HostStore struct {
	db     *sql.DB
	logger logger.Logger
}

// New opens (creating if needed) the host database at dbPath.
func New(dbPath string, log logger.Logger) (*HostStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open host database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach host database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize host schema: %w", err)
	}

	return &HostStore{db: db, logger: log}, nil
}

// LoadHosts returns every persisted host record, ordered by name.
func (s *HostStore) LoadHosts() ([]hosts.Record, error) {
	rows, err := s.db.Query(`
		SELECT unique_id, name, mac_address, codec_mode_support,
		       local_address, remote_address, manual_address,
		       pair_state, server_version, app_version
		FROM hosts
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load hosts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []hosts.Record

	for rows.Next() {
		var (
			rec       hosts.Record
			macText   string
			pairState int
		)

		err := rows.Scan(&rec.UniqueID, &rec.Name, &macText, &rec.CodecModeSupport,
			&rec.LocalAddress, &rec.RemoteAddress, &rec.ManualAddress,
			&pairState, &rec.ServerVersion, &rec.AppVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to scan host row: %w", err)
		}

		rec.PairState = hosts.PairState(pairState)

		if macText != "" {
			mac, macErr := net.ParseMAC(macText)
			if macErr != nil {
				s.logger.Warn().
					Str("unique_id", rec.UniqueID).
					Str("mac", macText).
					Msg("Dropping unparsable persisted MAC address")
			} else {
				rec.MACAddress = mac
			}
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate host rows: %w", err)
	}

	for i := range records {
		apps, err := s.loadApps(records[i].UniqueID)
		if err != nil {
			return nil, err
		}

		records[i].Apps = apps
	}

	return records, nil
}

func (s *HostStore) loadApps(uniqueID string) ([]hosts.App, error) {
	rows, err := s.db.Query(`
		SELECT app_id, name, hdr_supported
		FROM host_apps
		WHERE host_unique_id = ?
		ORDER BY app_id`, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load apps for %s: %w", uniqueID, err)
	}
	defer func() { _ = rows.Close() }()

	var apps []hosts.App

	for rows.Next() {
		var app hosts.App

		if err := rows.Scan(&app.ID, &app.Name, &app.HDRSupported); err != nil {
			return nil, fmt.Errorf("failed to scan app row: %w", err)
		}

		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate app rows: %w", err)
	}

	return apps, nil
}

// SaveHosts replaces the persisted set with the given records in a single
// transaction. Volatile fields (active address, connection state, current
// app) are not written.
func (s *HostStore) SaveHosts(records []hosts.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin host save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM host_apps`); err != nil {
		return fmt.Errorf("failed to clear apps: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM hosts`); err != nil {
		return fmt.Errorf("failed to clear hosts: %w", err)
	}

	hostStmt, err := tx.Prepare(`
		INSERT INTO hosts (unique_id, name, mac_address, codec_mode_support,
		                   local_address, remote_address, manual_address,
		                   pair_state, server_version, app_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare host insert: %w", err)
	}
	defer func() { _ = hostStmt.Close() }()

	appStmt, err := tx.Prepare(`
		INSERT INTO host_apps (host_unique_id, app_id, name, hdr_supported)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare app insert: %w", err)
	}
	defer func() { _ = appStmt.Close() }()

	for _, rec := range records {
		macText := ""
		if len(rec.MACAddress) > 0 {
			macText = rec.MACAddress.String()
		}

		_, err := hostStmt.Exec(rec.UniqueID, rec.Name, macText, rec.CodecModeSupport,
			rec.LocalAddress, rec.RemoteAddress, rec.ManualAddress,
			int(rec.PairState), rec.ServerVersion, rec.AppVersion)
		if err != nil {
			return fmt.Errorf("failed to insert host %s: %w", rec.UniqueID, err)
		}

		for _, app := range rec.Apps {
			if _, err := appStmt.Exec(rec.UniqueID, app.ID, app.Name, app.HDRSupported); err != nil {
				return fmt.Errorf("failed to insert app %d for host %s: %w", app.ID, rec.UniqueID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit host save: %w", err)
	}

	return nil
}

// Close releases the underlying database handle.
func (s *HostStore) Close() error {
	return s.db.Close()
}
