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
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// metricSummary accumulates one metric key across a telemetry file.
type metricSummary struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
	// Numeric is false for text-only metrics like judge feedback.
	Numeric bool
}

func newReportCmd() *cobra.Command {
	var telemetryPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a telemetry JSONL file",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, records, err := summarizeTelemetry(telemetryPath)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(summaries))
			for k := range summaries {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "telemetry: %s (%d records)\n\n", telemetryPath, records)
			fmt.Fprintf(out, "%-32s %8s %10s %10s %10s\n", "metric", "count", "mean", "min", "max")
			for _, k := range keys {
				s := summaries[k]
				if !s.Numeric {
					fmt.Fprintf(out, "%-32s %8d %10s %10s %10s\n", k, s.Count, "-", "-", "-")
					continue
				}
				fmt.Fprintf(out, "%-32s %8d %10.4f %10.4f %10.4f\n",
					k, s.Count, s.Sum/float64(s.Count), s.Min, s.Max)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&telemetryPath, "telemetry", "t", "reports/telemetry.jsonl", "telemetry JSONL file to summarize")
	return cmd
}

// summarizeTelemetry folds every record in the JSONL file into per-metric
// summaries. Malformed lines are skipped; the file is append-only and a
// crashed run can leave a truncated final line.
func summarizeTelemetry(path string) (map[string]*metricSummary, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	summaries := make(map[string]*metricSummary)
	records := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records++
		for key, value := range record {
			if key == "ts" {
				continue
			}
			s := summaries[key]
			if s == nil {
				s = &metricSummary{}
				summaries[key] = s
			}
			s.Count++
			num, ok := asFloat(value)
			if !ok {
				continue
			}
			if !s.Numeric || num < s.Min {
				s.Min = num
			}
			if !s.Numeric || num > s.Max {
				s.Max = num
			}
			s.Sum += num
			s.Numeric = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan telemetry file: %w", err)
	}
	return summaries, records, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
