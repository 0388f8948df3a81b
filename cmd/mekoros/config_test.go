// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCLIConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadCLIConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg.applyDefaults()
	assert.Equal(t, "http://localhost:8595", cfg.APIURL)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "data/cache", cfg.CacheDir)
	assert.Equal(t, "https://www.sefaria.org/api", cfg.Corpus.BaseURL)
}

func TestLoadCLIConfigParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: http://mekoros.internal:9000
data_dir: /var/lib/mekoros
corpus:
  base_url: https://corpus.internal/api
`), 0640))

	cfg, err := LoadCLIConfig(path)
	require.NoError(t, err)

	cfg.applyDefaults()
	assert.Equal(t, "http://mekoros.internal:9000", cfg.APIURL)
	assert.Equal(t, "/var/lib/mekoros", cfg.DataDir)
	assert.Equal(t, "https://corpus.internal/api", cfg.Corpus.BaseURL)
	// Unset fields still fall back.
	assert.Equal(t, "data/cache", cfg.CacheDir)
}

func TestLoadCLIConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unclosed"), 0640))

	_, err := LoadCLIConfig(path)
	assert.Error(t, err)
}
