// Command extract-segmenter turns transcript extract logs into timed,
// speaker-attributed segments and publishes them to a sink.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("extract-segmenter failed")
		os.Exit(1)
	}
}
