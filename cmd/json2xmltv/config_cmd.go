// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/ManuGH/json2xmltv/internal/config"
	"github.com/ManuGH/json2xmltv/internal/version"
	"github.com/spf13/cobra"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration (file + ENV) and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				loader := config.NewLoader(root.configPath, version.Version)
				if _, err := loader.Load(); err != nil {
					return fmt.Errorf("configuration error in %s: %w", describeSource(root.configPath), err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", describeSource(root.configPath))
				return err
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				loader := config.NewLoader(root.configPath, version.Version)
				cfg, err := loader.Load()
				if err != nil {
					return err
				}
				out, err := config.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			},
		},
	)
	return cmd
}

func describeSource(path string) string {
	if path == "" {
		return "environment and defaults"
	}
	return path
}
