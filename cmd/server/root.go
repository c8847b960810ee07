// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/storefront/internal/config"
	"github.com/tomtom215/storefront/internal/logging"
)

// cli carries state shared by subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "server",
		Short:         "Storefront admin backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// hash-password needs no configuration.
			if cmd.Annotations["skipConfig"] == "true" {
				return nil
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				logging.Error().Err(err).Msg("Failed to load configuration")
				return err
			}
			logging.Init(logging.Config{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				Caller:    cfg.Logging.Caller,
				Timestamp: true,
			})
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file (overrides "+config.ConfigPathEnvVar+")")

	root.AddCommand(
		newServeCmd(c),
		newLogsCmd(c),
		newHashPasswordCmd(),
	)
	return root
}
