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

package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		log, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("debug flag overrides level", func(t *testing.T) {
		log, err := New(&Config{Level: "error", Debug: true})
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("invalid level is rejected", func(t *testing.T) {
		_, err := New(&Config{Level: "loud"})
		require.Error(t, err)
	})
}

func TestNewComponentLogger(t *testing.T) {
	log, err := NewComponentLogger("hostmanager", &Config{Level: "info"})
	require.NoError(t, err)
	assert.NotNil(t, log)

	// The returned logger must be usable immediately.
	log.Info().Str("key", "value").Msg("component logger smoke test")
}

func TestTestLogger(t *testing.T) {
	log := NewTestLogger()
	require.NotNil(t, log)

	log.Debug().Msg("discarded")
	log.Error().Msg("discarded")
	log.SetLevel(zerolog.InfoLevel)
	log.SetDebug(true)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "stdout", cfg.Output)
}
