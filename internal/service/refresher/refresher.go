// Package refresher periodically regenerates personalized recommendations
// for every enrolled user under a suture supervisor.
package refresher

import (
	"context"
	"time"

	"volunteer/matching/internal/config"
	"volunteer/matching/internal/logging"
	"volunteer/matching/internal/service/recommendation"

	"github.com/rs/zerolog"
)

type Generator interface {
	Generate(ctx context.Context, target *int64) (recommendation.Report, error)
}

// Service implements suture.Service.
type Service struct {
	generator Generator
	config    config.RefresherConfig
	logger    zerolog.Logger
}

func New(generator Generator, cfg config.RefresherConfig) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Service{
		generator: generator,
		config:    cfg,
		logger:    logging.With().Str("service", "refresher").Logger(),
	}
}

func (s *Service) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Msg("recommendation refresher starting")

	if s.config.RunOnStartup {
		s.refresh(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("recommendation refresher shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh runs one generation. Failures are logged and retried on the next
// tick rather than restarting the service.
func (s *Service) refresh(ctx context.Context) {
	ctx = logging.ContextWithCorrelationID(ctx, logging.NewCorrelationID())
	report, err := s.generator.Generate(ctx, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("scheduled recommendation run failed")
		return
	}
	s.logger.Debug().Int("inserted", report.Inserted).Msg("scheduled recommendation run finished")
}

func (s *Service) String() string {
	return "recommendation-refresher"
}
