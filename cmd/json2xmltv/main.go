// SPDX-License-Identifier: MIT

// json2xmltv converts JSON schedule feeds into XMLTV guides, either as an
// HTTP service or as a one-shot CLI conversion.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/json2xmltv/internal/config"
	xglog "github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "json2xmltv",
		Short:         "Convert JSON schedule feeds to XMLTV",
		SilenceUsage:  true,
		SilenceErrors: true,
		// serve is the default action
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to config file (YAML); ENV "+config.EnvPrefix+"* overrides it")

	root.AddCommand(
		newServeCmd(opts),
		newConvertCmd(opts),
		newConfigCmd(opts),
		newHealthcheckCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads configuration and configures the global logger from it.
func loadConfig(opts *rootOptions) (config.AppConfig, *config.Loader, error) {
	xglog.Configure(xglog.Config{Level: "info", Output: os.Stderr, Version: version.Version})

	loader := config.NewLoader(opts.configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("load config: %w", err)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stderr,
		Version: cfg.Version,
	})
	return cfg, loader, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
