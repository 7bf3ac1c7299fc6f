package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"extract-segmenter/internal/app"
	"extract-segmenter/internal/observability/metrics"
	"extract-segmenter/internal/service/segment"
)

func newCheckCommand(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check [file|-]",
		Short: "Parse a log without publishing and report what it contains",
		Long: `Parse an extract log, discard the segments and print the number of
utterances and segments. Exits non-zero on the first syntax error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			application := app.New(cfg, metrics.DefaultMetrics)
			if err := application.Start(); err != nil {
				return err
			}
			defer application.Shutdown()

			in, source, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			res, err := application.Process(cmd.Context(), sessionID(cfg), source, in, segment.Discard)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(res)
			}
			fmt.Fprintf(out, "utterances: %d\n", res.Utterances)
			fmt.Fprintf(out, "segments:   %d\n", res.Segments)
			if res.DanglingContinuation {
				fmt.Fprintln(out, "warning: log ends inside a continued segment")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
