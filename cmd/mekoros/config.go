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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CLIConfig is the optional config.yaml for the CLI. Every field has
// a working default, so the file may be absent entirely.
type CLIConfig struct {
	// APIURL is the orchestrator base URL used by remote commands
	// such as health.
	APIURL string `yaml:"api_url"`

	// DataDir holds the word dictionary and clarification sessions.
	DataDir string `yaml:"data_dir"`

	// CacheDir roots the corpus and LLM file caches.
	CacheDir string `yaml:"cache_dir"`

	// LogDir enables JSON file logging when set.
	LogDir string `yaml:"log_dir"`

	Corpus struct {
		// BaseURL is the corpus API root.
		BaseURL string `yaml:"base_url"`
	} `yaml:"corpus"`
}

// LoadCLIConfig reads the config file at path. A missing file is not
// an error; the zero config is returned and defaults apply.
func LoadCLIConfig(path string) (CLIConfig, error) {
	var cfg CLIConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func (c *CLIConfig) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = "http://localhost:8595"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.CacheDir == "" {
		c.CacheDir = "data/cache"
	}
	if c.Corpus.BaseURL == "" {
		c.Corpus.BaseURL = "https://www.sefaria.org/api"
	}
}
