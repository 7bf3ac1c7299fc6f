package app

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"extract-segmenter/internal/config"
	"extract-segmenter/internal/events"
	"extract-segmenter/internal/extract"
	"extract-segmenter/internal/grammar"
	"extract-segmenter/internal/observability"
	"extract-segmenter/internal/observability/logging"
	"extract-segmenter/internal/observability/metrics"
	"extract-segmenter/internal/service/segment"
)

// Application holds process-wide state for the segmenter.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Metrics     *metrics.Metrics

	ready atomic.Bool
	runs  atomic.Int64
}

// Result summarizes one parse session.
type Result struct {
	Utterances int `json:"utterances"`
	Segments   int `json:"segments"`
	// DanglingContinuation is set when the log ended with a "~" segment that
	// no later transcription closed. That segment is not emitted.
	DanglingContinuation bool `json:"danglingContinuation"`
}

// Status is the application state reported on the status endpoint.
type Status struct {
	Service     string    `json:"service"`
	StartupTime time.Time `json:"startupTime"`
	Ready       bool      `json:"ready"`
	Runs        int64     `json:"runs"`
}

// New constructs an Application and initializes the global logger from cfg.
// A nil m uses the default metrics.
func New(cfg *config.Config, m *metrics.Metrics) *Application {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg:     cfg,
		Metrics: m,
		Logger: logging.WithComponent("application").With().
			Str("service", cfg.Service.Name).
			Logger(),
	}
	a.Logger.Debug().
		Str("sink", cfg.Sink.Type).
		Str("logLevel", cfg.Observability.LogLevel).
		Msg("Segmenter application created")
	return a
}

// Start marks the application ready.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)
	a.Logger.Debug().
		Time("startupTime", a.StartupTime).
		Msg("Segmenter starting")
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.ready.Store(false)
	a.Logger.Debug().Int64("runs", a.runs.Load()).Msg("Segmenter shutting down")
}

func (a *Application) Ready() bool {
	return a.ready.Load()
}

func (a *Application) Status() Status {
	return Status{
		Service:     a.Cfg.Service.Name,
		StartupTime: a.StartupTime,
		Ready:       a.Ready(),
		Runs:        a.runs.Load(),
	}
}

// NewPublisher opens the publisher selected by the sink configuration.
// stdout receives events for the stdout sink.
func (a *Application) NewPublisher(ctx context.Context, stdout io.Writer) (events.Publisher, error) {
	cfg := a.Cfg
	switch cfg.Sink.Type {
	case config.SinkStdout:
		return events.NewWriterPublisher("stdout", stdout, cfg.Sink.JSONIndent, a.Metrics), nil
	case config.SinkFile:
		return events.NewFilePublisher(cfg.Sink.FilePath, cfg.Sink.JSONIndent, a.Metrics)
	case config.SinkKafka:
		return events.NewKafkaPublisher(&events.KafkaConfig{
			Enabled:      cfg.Kafka.Enabled,
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.TopicSegments,
			Principal:    cfg.Kafka.Principal,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, a.Metrics), nil
	case config.SinkRedis:
		p := events.NewRedisPublisher(events.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			MaxLen:   cfg.Redis.MaxLen,
		}, a.Metrics)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			_ = p.Close()
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Sink.Type)
	}
}

// Run parses r as one session and publishes its segments to the configured
// sink.
func (a *Application) Run(ctx context.Context, sessionID, source string, r io.Reader, stdout io.Writer) (Result, error) {
	publisher, err := a.NewPublisher(ctx, stdout)
	if err != nil {
		return Result{}, fmt.Errorf("open %s sink: %w", a.Cfg.Sink.Type, err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close publisher")
		}
	}()

	sink := observability.InstrumentSink(a.Cfg.Sink.Type, events.NewSegmentSink(publisher, sessionID), a.Metrics)
	return a.Process(ctx, sessionID, source, r, sink)
}

// Process runs one parse session over r, writing segments to sink. Segments
// written before an error stand.
func (a *Application) Process(ctx context.Context, sessionID, source string, r io.Reader, sink segment.Sink) (Result, error) {
	a.runs.Add(1)
	logger := logging.WithSession(sessionID, source)

	emitter := segment.NewEmitter(sink, segment.WithMetaHook(func(key, value string) {
		logger.Debug().Str("key", key).Str("value", value).Msg("Utterance metadata")
	}))
	parser := extract.NewParser(extract.NewLexer(r), emitter)

	start := time.Now()
	err := parser.Parse(ctx)
	duration := time.Since(start)

	res := Result{
		Utterances: parser.Utterances(),
		Segments:   emitter.Emitted(),
	}
	a.Metrics.RecordUtterances(res.Utterances)
	a.Metrics.RecordSegments(res.Segments)
	a.Metrics.RecordRun(err == nil, duration.Seconds())

	if err != nil {
		kind := grammar.KindOf(err)
		a.Metrics.RecordParseError(kind)
		logger.Error().
			Err(err).
			Str("kind", kind).
			Int("utterances", res.Utterances).
			Int("segments", res.Segments).
			Msg("Parse failed")
		return res, err
	}

	if emitter.Pending() {
		res.DanglingContinuation = true
		a.Metrics.RecordDanglingContinuation()
		pending := emitter.Segment()
		logger.Warn().
			Str("speaker", pending.Speaker).
			Int64("startMs", pending.Start).
			Msg("Log ended inside a continued segment; it was not emitted")
	}

	logger.Info().
		Int("utterances", res.Utterances).
		Int("segments", res.Segments).
		Dur("duration", duration).
		Msg("Parse completed")
	return res, nil
}
