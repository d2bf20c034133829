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

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "agent0",
	Short: "Agent0 co-evolution trainer",
	Long: `agent0 drives the self-play training loop: a curriculum policy
proposes tasks, an executor policy attempts them, and the pipeline distills
the attempts into filtered training signal for both policies.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newDashboardCmd())
}
