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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Mekoros/services/cache"
)

type healthResponse struct {
	OK       bool `json:"ok"`
	Versions struct {
		Service  string `json:"service"`
		Go       string `json:"go"`
		LLMModel string `json:"llm_model"`
	} `json:"versions"`
	CacheStats map[string]cache.Stats `json:"cache_stats"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	url := cliConfig.APIURL + "/health"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("orchestrator unreachable at %s: %w", cliConfig.APIURL, err)
	}
	defer resp.Body.Close()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}

	if jsonOutput {
		return OutputJSON(health)
	}

	status := titleStyle.Render("healthy")
	if !health.OK || resp.StatusCode != http.StatusOK {
		status = warnStyle.Render("unhealthy")
	}
	fmt.Printf("%s  %s\n", status, cliConfig.APIURL)
	fmt.Printf("  service %s  go %s  llm %s\n",
		health.Versions.Service, health.Versions.Go, health.Versions.LLMModel)
	for name, stats := range health.CacheStats {
		fmt.Printf("  cache %-16s %d entries, %d hits, %d misses\n",
			name, stats.Entries, stats.Hits, stats.Misses)
	}
	return nil
}
