// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/export"
	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/query"
)

func newLogsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Maintain the admin audit log",
	}
	cmd.AddCommand(newLogsPurgeCmd(c), newLogsExportCmd(c))
	return cmd
}

func newLogsPurgeCmd(c *cli) *cobra.Command {
	var olderThan string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit records older than an age (90d, 12h) or a date (2024-01-31)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cutoff, err := parseCutoff(olderThan, time.Now().UTC())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStores(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer st.close(ctx)

			deleted, err := st.audit.PurgeOlderThan(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			logging.Info().Time("cutoff", cutoff).Int64("deleted", deleted).Msg("Audit records purged")
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records older than %s\n", deleted, cutoff.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "", "age or date cutoff")
	_ = cmd.MarkFlagRequired("older-than")
	return cmd
}

// parseCutoff accepts "<n>d", any time.ParseDuration string, or a date.
func parseCutoff(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	if t, ok := query.ParseDate(s, false); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --older-than %q: want 90d, 36h or 2024-01-31", s)
}

func newLogsExportCmd(c *cli) *cobra.Command {
	var (
		format, out string
		filters     []string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write audit records to a CSV, PDF, Excel or JSON file",
		Example: `  server logs export --format csv --out logs.csv
  server logs export --format pdf --out march.pdf --filter startDate=2024-03-01 --filter endDate=2024-03-31`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			values := url.Values{}
			for _, kv := range filters {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --filter %q: want key=value", kv)
				}
				values.Add(k, v)
			}
			q, err := query.ParseLogQuery(values)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStores(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer st.close(ctx)

			limit := c.cfg.Export.RowLimit(string(f))
			rows, truncated, err := audit.ExportRows(ctx, st.audit, q.Filter(), limit)
			if err != nil {
				return err
			}
			if out == "" {
				out = c.cfg.Export.FilenamePrefix + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "." + f.Extension()
			}

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(file)
			werr := export.Write(w, f, rows, audit.ExportColumns(), export.Options{
				Title:       c.cfg.Export.PDFTitle,
				GeneratedAt: time.Now(),
			})
			if werr == nil {
				werr = w.Flush()
			}
			if cerr := file.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				return fmt.Errorf("write %s: %w", out, werr)
			}

			if truncated {
				logging.Warn().Int("max_rows", limit).Msg("Export truncated")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv, pdf, excel (xlsx) or json")
	cmd.Flags().StringVar(&out, "out", "", "output file (default <prefix>-<epoch ms>.<ext>)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "log query filter, e.g. action=DELETE or startDate=2024-01-01 (repeatable)")
	return cmd
}
