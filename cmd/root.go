package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"extract-segmenter/internal/app"
	"extract-segmenter/internal/config"
	apphttp "extract-segmenter/internal/http"
	"extract-segmenter/internal/observability"
	"extract-segmenter/internal/observability/metrics"
)

// options holds the command-line overrides. Empty values keep the
// configured ones.
type options struct {
	configPath  string
	sessionID   string
	logLevel    string
	logFormat   string
	sink        string
	output      string
	metricsAddr string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "extract-segmenter [file|-]",
		Short: "Turn transcript extract logs into timed speaker segments",
		Long: `extract-segmenter reads a transcript extract log (FILE, INTERVAL,
TRANSCRIPTION, HYPOTHESIS, LABELS and USER lines grouped into utterances by
blank lines) and emits one event per speaker segment.

With no file, or "-", the log is read from stdin. Segments go to the
configured sink: JSON lines on stdout (default), a file, a Kafka topic or a
Redis stream. Logs are written to stderr.

Examples:
  extract-segmenter calls.log
  extract-segmenter --sink file --output segments.jsonl calls.log
  SINK_TYPE=kafka KAFKA_ENABLED=true extract-segmenter < calls.log
  extract-segmenter check calls.log`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegment(cmd, opts, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&opts.sessionID, "session-id", "", "Session id for published events (default: random UUID)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: json, console")

	f := root.Flags()
	f.StringVar(&opts.sink, "sink", "", "Segment sink: stdout, file, kafka, redis")
	f.StringVar(&opts.output, "output", "", "Output path for the file sink")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve metrics and health endpoints on this address")

	root.AddCommand(newCheckCommand(opts))
	return root
}

// load builds the configuration from the file, the environment and the flags,
// in increasing precedence.
func (o *options) load() (*config.Config, error) {
	var cfg *config.Config
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(o.configPath); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Load()
	}

	if o.sessionID != "" {
		cfg.Service.SessionID = o.sessionID
	}
	if o.logLevel != "" {
		cfg.Observability.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Observability.LogFormat = o.logFormat
	}
	if o.sink != "" {
		cfg.Sink.Type = o.sink
	}
	if o.output != "" {
		cfg.Sink.FilePath = o.output
	}
	if o.metricsAddr != "" {
		cfg.Observability.MetricsAddr = o.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sessionID(cfg *config.Config) string {
	if cfg.Service.SessionID != "" {
		return cfg.Service.SessionID
	}
	return uuid.NewString()
}

// openInput returns the log named by args, or stdin.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	return f, args[0], nil
}

func runSegment(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	application := app.New(cfg, metrics.DefaultMetrics)
	if err := application.Start(); err != nil {
		return err
	}
	defer application.Shutdown()

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := observability.NewServer(addr, apphttp.NewRouter(application, nil))
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	in, source, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = application.Run(cmd.Context(), sessionID(cfg), source, in, cmd.OutOrStdout())
	return err
}
