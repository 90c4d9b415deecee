package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"volunteer/matching/internal/logging"
	"volunteer/matching/internal/pkg/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Main(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		logging.Fatal().Err(err).Msg("matching")
	}
}
