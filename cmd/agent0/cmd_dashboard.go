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
	"github.com/spf13/cobra"

	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/dashboard"
)

func newDashboardCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the run dashboard without a training loop",
		Long: `Serves /healthz, /status, and /metrics standalone. Useful for
scraping process metrics from a host that only mirrors telemetry files;
the status history stays empty without an attached run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(logging.Config{Level: logging.LevelInfo, Service: "agent0-dashboard"})
			server := dashboard.NewServer(dashboard.NewStatusStore(0), logger)
			return server.Run(addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8600", "listen address")
	return cmd
}
