// Package app wires configuration, storage and the matching services into
// the command line entry point.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"volunteer/matching/internal/config"
	"volunteer/matching/internal/logging"
	"volunteer/matching/internal/service/compatibility"
	"volunteer/matching/internal/service/db"
	"volunteer/matching/internal/service/features"
	"volunteer/matching/internal/service/prediction"
	"volunteer/matching/internal/service/recommendation"
)

var errUsage = errors.New("usage: matching <serve|generate|predict|top|user|score> [flags]")

type App struct {
	config    *config.Config
	store     *db.DB
	scorer    *compatibility.CompatibilityService
	predictor *prediction.Predictor
	engine    *recommendation.Engine
	out       io.Writer
}

// New builds the services over an open store. Command output goes to out.
func New(cfg *config.Config, store *db.DB, out io.Writer) *App {
	var exporter prediction.TreeExporter
	if cfg.Prediction.TreeDotPath != "" {
		exporter = prediction.NewDOTFile(cfg.Prediction.TreeDotPath)
	}

	extractor := features.New(store, store, cfg.Features)
	return &App{
		config:    cfg,
		store:     store,
		scorer:    compatibility.New(cfg.Compatibility),
		predictor: prediction.New(cfg.Prediction, extractor, store, exporter),
		engine:    recommendation.New(cfg.Recommendation, store, store, store),
		out:       out,
	}
}

// Main loads the configuration, opens the store and runs one command.
func Main(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	store, err := db.New(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("close database")
		}
	}()

	return New(cfg, store, out).Run(ctx, args)
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	ctx = logging.ContextWithCorrelationID(ctx, logging.NewCorrelationID())
	logging.Ctx(ctx).Debug().Str("command", cmd).Strs("args", rest).Msg("running command")

	switch cmd {
	case "serve":
		return a.serve(ctx, rest)
	case "generate":
		return a.generate(ctx, rest)
	case "predict":
		return a.predict(ctx, rest)
	case "top":
		return a.top(ctx, rest)
	case "user":
		return a.user(ctx, rest)
	case "score":
		return a.score(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}
