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
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/Mekoros/services/decipher"
)

// skipSentinel marks the "leave unconfirmed" select option.
const skipSentinel = "\x00skip"

func runDecipher(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	deps, err := buildDeps(cliConfig, false)
	if err != nil {
		return err
	}
	defer deps.Close()

	res, err := deps.Decipher.Decipher(cmd.Context(), query)
	if err != nil {
		return err
	}

	if res.NeedsValidation && !strictMode && !jsonOutput && interactiveTerminal() {
		res, err = confirmWords(cmd.Context(), deps.Decipher, query, res)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		return OutputJSON(res)
	}
	fmt.Print(renderDecipher(res))
	return nil
}

// confirmWords walks the uncertain words one at a time, learning each
// confirmed mapping. Confirm re-runs the pipeline, so the loop always
// restarts from the fresh result.
func confirmWords(ctx context.Context, p *decipher.Pipeline, query string, res *decipher.Result) (*decipher.Result, error) {
	for range res.WordValidations {
		idx := -1
		for i, wv := range res.WordValidations {
			if wv.NeedsValidation {
				idx = i
				break
			}
		}
		if idx < 0 {
			return res, nil
		}

		choice, err := pickHebrew(res.WordValidations[idx])
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil, context.Canceled
			}
			return nil, err
		}
		if choice == skipSentinel {
			return res, nil
		}

		res, err = p.Confirm(ctx, query, idx, choice)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func pickHebrew(wv decipher.WordValidation) (string, error) {
	options := make([]huh.Option[string], 0, len(wv.Alternatives)+2)
	if wv.BestHebrew != "" {
		options = append(options, huh.NewOption(wv.BestHebrew+" (best match)", wv.BestHebrew))
	}
	for _, alt := range wv.Alternatives {
		options = append(options, huh.NewOption(alt, alt))
	}
	options = append(options, huh.NewOption("leave unconfirmed", skipSentinel))

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Which Hebrew did you mean for %q?", wv.Original)).
			Options(options...).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}
