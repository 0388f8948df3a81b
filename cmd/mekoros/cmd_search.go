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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/Mekoros/services/search"
)

func runSearch(cmd *cobra.Command, args []string) error {
	if clarifyID == "" && len(args) == 0 {
		return errors.New("provide a query, or --clarify with a pending query ID")
	}

	deps, err := buildDeps(cliConfig, true)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()
	var res *search.Result
	if clarifyID != "" {
		if optionID == "" {
			return errors.New("--clarify requires --option with the selected option ID")
		}
		res, err = deps.Search.Clarify(ctx, clarifyID, optionID)
	} else {
		res, err = deps.Search.Search(ctx, strings.Join(args, " "))
	}
	if err != nil {
		return err
	}

	// One interactive round: let the user pick an option instead of
	// copying the query ID into a second invocation.
	if res.NeedsClarification && !jsonOutput && interactiveTerminal() {
		choice, perr := pickClarifyOption(res)
		if perr != nil {
			if errors.Is(perr, huh.ErrUserAborted) {
				return context.Canceled
			}
			return perr
		}
		if choice != skipSentinel {
			res, err = deps.Search.Clarify(ctx, res.QueryID, choice)
			if err != nil {
				return err
			}
		}
	}

	if outPath != "" {
		if err := writeResultFile(outPath, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Result written to %s\n", outPath)
	}

	if jsonOutput {
		return OutputJSON(res)
	}
	fmt.Print(renderSearch(res))
	return nil
}

func pickClarifyOption(res *search.Result) (string, error) {
	options := make([]huh.Option[string], 0, len(res.ClarificationOptions)+1)
	for _, opt := range res.ClarificationOptions {
		options = append(options, huh.NewOption(opt.Label, opt.ID))
	}
	options = append(options, huh.NewOption("none of these", skipSentinel))

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(res.ClarificationPrompt).
			Options(options...).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

func writeResultFile(path string, res *search.Result) error {
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(path, raw, 0640); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
