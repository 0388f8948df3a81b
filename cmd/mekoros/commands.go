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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Mekoros/pkg/logging"
	"github.com/AleutianAI/Mekoros/services/llm"
)

// --- Global Command Variables ---
var (
	cliConfig CLIConfig

	configPath string
	apiURL     string
	jsonOutput bool
	verbose    bool
	logDir     string

	strictMode bool
	outPath    string
	clarifyID  string
	optionID   string

	dictBucket  string
	dictSAKey   string
	dictGCSPath string

	rootCmd = &cobra.Command{
		Use:   "mekoros",
		Short: "A cli for the Mekoros Talmudic source-retrieval pipeline",
		Long: `Mekoros turns transliterated yeshivish queries into grouped
				primary sources: decipher the Hebrew, understand the topic,
				and retrieve the sugya with its commentaries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loaded, err := LoadCLIConfig(configPath)
			if err != nil {
				slog.Warn("config file unreadable, using defaults", "path", configPath, "error", err)
			} else {
				cliConfig = loaded
			}
			cliConfig.applyDefaults()
			if apiURL != "" {
				cliConfig.APIURL = apiURL
			}
			if logDir != "" {
				cliConfig.LogDir = logDir
			}

			logger := logging.New(logging.Config{
				Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
				LogDir:  cliConfig.LogDir,
				Service: "mekoros-cli",
				Quiet:   !verbose,
			})
			slog.SetDefault(logger.Slog())
		},
	}

	// --- Pipeline ---
	decipherCmd = &cobra.Command{
		Use:   "decipher [query]",
		Short: "Convert a transliterated query into Hebrew terms",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDecipher, // Defined in cmd_decipher.go
	}
	searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Run the full pipeline and retrieve grouped sources",
		RunE:  runSearch, // Defined in cmd_search.go
	}

	// --- Dictionary ---
	dictCmd = &cobra.Command{
		Use:   "dict",
		Short: "Inspect and manage the learned transliteration dictionary",
	}
	dictListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every learned transliteration mapping",
		RunE:  runDictList, // Defined in cmd_dict.go
	}
	dictStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show dictionary size and per-source counts",
		RunE:  runDictStats, // Defined in cmd_dict.go
	}
	dictBackupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped dictionary backup, optionally uploading it to GCS",
		RunE:  runDictBackup, // Defined in cmd_dict.go
	}

	// --- Service ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check a running orchestrator's health endpoint",
		RunE:  runHealth, // Defined in cmd_health.go
	}
)

// Execute runs the root command and maps failures to exit codes.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return CLIExitInterrupt
		case errors.Is(err, llm.ErrMissingKey):
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return CLIExitMissingKey
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return CLIExitError
		}
	}
	return CLIExitSuccess
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the optional CLI config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Orchestrator base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit raw JSON instead of rendered output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for JSON file logs (overrides config)")

	decipherCmd.Flags().BoolVar(&strictMode, "strict", false, "Never prompt; return uncertain words for scripted confirmation")

	searchCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the full result JSON to a file")
	searchCmd.Flags().StringVar(&clarifyID, "clarify", "", "Resume a pending clarification by query ID")
	searchCmd.Flags().StringVar(&optionID, "option", "", "Clarification option ID to select (with --clarify)")

	dictBackupCmd.Flags().StringVar(&dictBucket, "bucket", "", "GCS bucket to upload the backup to")
	dictBackupCmd.Flags().StringVar(&dictSAKey, "sa-key", "", "Path to the GCS service account key")
	dictBackupCmd.Flags().StringVar(&dictGCSPath, "gcs-prefix", "dictionary", "Object prefix inside the bucket")

	dictCmd.AddCommand(dictListCmd, dictStatsCmd, dictBackupCmd)
	rootCmd.AddCommand(decipherCmd, searchCmd, dictCmd, healthCmd)
}
