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
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Mekoros/cmd/mekoros/gcs"
	"github.com/AleutianAI/Mekoros/services/decipher"
)

func openDictionary() (*decipher.Dictionary, error) {
	return decipher.NewDictionary(filepath.Join(cliConfig.DataDir, "word_dictionary.json"))
}

func runDictList(cmd *cobra.Command, args []string) error {
	dict, err := openDictionary()
	if err != nil {
		return err
	}

	listings := dict.Entries()
	if jsonOutput {
		out := make([]map[string]any, 0, len(listings))
		for _, l := range listings {
			out = append(out, map[string]any{
				"transliteration": l.Key,
				"hebrew":          l.Entry.Hebrew,
				"source":          l.Entry.Source,
				"confidence":      l.Entry.Confidence,
				"usage_count":     l.Entry.UsageCount,
			})
		}
		return OutputJSON(out)
	}

	for _, l := range listings {
		fmt.Printf("%-24s %s  %s\n", l.Key,
			hebrewStyle.Render(l.Entry.Hebrew),
			faintStyle.Render(fmt.Sprintf("%s, used %d×", l.Entry.Source, l.Entry.UsageCount)))
	}
	fmt.Println(faintStyle.Render(fmt.Sprintf("%d entries", len(listings))))
	return nil
}

func runDictStats(cmd *cobra.Command, args []string) error {
	dict, err := openDictionary()
	if err != nil {
		return err
	}

	stats := dict.Stats()
	if jsonOutput {
		return OutputJSON(stats)
	}

	fmt.Println(titleStyle.Render(stats.Path))
	fmt.Printf("entries: %d  total uses: %d\n", stats.Entries, stats.TotalUse)
	for source, n := range stats.BySource {
		fmt.Printf("  %-16s %d\n", source, n)
	}
	return nil
}

func runDictBackup(cmd *cobra.Command, args []string) error {
	dict, err := openDictionary()
	if err != nil {
		return err
	}

	backupPath, err := dict.Backup()
	if err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}
	fmt.Printf("Backup written to %s\n", backupPath)

	if dictBucket == "" {
		return nil
	}
	if dictSAKey == "" {
		return errors.New("--bucket requires --sa-key with a service account key path")
	}

	ctx := cmd.Context()
	uploader, err := gcs.NewUploader(ctx, dictBucket, dictSAKey)
	if err != nil {
		return err
	}
	defer uploader.Close()

	object, err := uploader.PutBackup(ctx, backupPath, dictGCSPath, dict.Stats().Entries)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded to gs://%s/%s\n", dictBucket, object)
	return nil
}
