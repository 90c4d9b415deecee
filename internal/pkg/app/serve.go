package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"volunteer/matching/internal/logging"
	"volunteer/matching/internal/service/refresher"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"
)

const shutdownTimeout = 10 * time.Second

func (a *App) serve(ctx context.Context, args []string) error {
	fs := newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sup := suture.New("matching", suture.Spec{
		EventHook: func(e suture.Event) {
			logging.Warn().Str("event", e.String()).Msg("supervisor event")
		},
		Timeout: shutdownTimeout,
	})

	var services int
	if a.config.Refresher.Enabled {
		sup.Add(refresher.New(a.engine, a.config.Refresher))
		services++
	}
	if a.config.Metrics.Enabled {
		sup.Add(newMetricsService(a.config.Metrics.Addr))
		services++
	}
	if services == 0 {
		logging.Warn().Msg("neither refresher nor metrics enabled, serve will idle until stopped")
	}

	logging.Info().Int("services", services).Msg("matching service started")
	err := sup.Serve(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logging.Info().Msg("matching service stopped")
		return nil
	}
	return err
}

// metricsService exposes the Prometheus registry over HTTP under suture.
type metricsService struct {
	addr     string
	server   *http.Server
	listener chan net.Addr
}

func newMetricsService(addr string) *metricsService {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &metricsService{
		addr: addr,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: make(chan net.Addr, 1),
	}
}

func (m *metricsService) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	select {
	case m.listener <- ln.Addr():
	default:
	}
	logging.Info().Str("addr", ln.Addr().String()).Msg("metrics endpoint listening")

	errCh := make(chan error, 1)
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := m.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (m *metricsService) String() string {
	return "metrics-server"
}
