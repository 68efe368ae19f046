// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ManuGH/json2xmltv/internal/epg"
	"github.com/ManuGH/json2xmltv/internal/translate"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	input  string
	url    string
	output string
}

func newConvertCmd(root *rootOptions) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one feed to XMLTV and exit",
		Long: `Convert a single JSON schedule feed to XMLTV.

The feed is read from --input (a file, or "-" for stdin) or fetched from
--url, which must pass the configured domain allowlist. The document goes to
--output, replaced atomically, or to stdout.`,
		Example: `  json2xmltv convert --input schedule.json --output guide.xml
  curl -s https://example.com/feed.json | json2xmltv convert --input -
  json2xmltv convert --url https://api.toonamiaftermath.com/media`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", `feed file to convert ("-" for stdin)`)
	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "feed URL to fetch")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "XMLTV file to write (default stdout)")
	cmd.MarkFlagsMutuallyExclusive("input", "url")
	cmd.MarkFlagsOneRequired("input", "url")
	return cmd
}

func runConvert(cmd *cobra.Command, root *rootOptions, opts *convertOptions) error {
	cfg, _, err := loadConfig(root)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	var res translate.Result
	if opts.url != "" {
		res, err = a.service.Translate(cmd.Context(), opts.url)
	} else {
		var data []byte
		data, err = readInput(cmd.InOrStdin(), opts.input)
		if err != nil {
			return err
		}
		res, err = a.service.ConvertBytes(cmd.Context(), data, translate.SourceFile)
	}
	if err != nil {
		return err
	}

	if len(res.Report.Skips) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d media entries\n", len(res.Report.Skips))
	}

	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(res.Document)
		return err
	}
	if err := epg.WriteFile(opts.output, res.TV); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d channels, %d programmes to %s\n",
		res.Report.Channels, res.Report.Programmes, opts.output)
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	// #nosec G304 -- path is supplied by the operator on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("input file %s does not exist", path)
		}
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
