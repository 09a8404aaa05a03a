package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/example/library/config"
	"github.com/hellofresh/cqrs/example/library/domain"
	"github.com/hellofresh/cqrs/extension/amqp"
	cqrsPrometheus "github.com/hellofresh/cqrs/extension/prometheus"
	cqrsZap "github.com/hellofresh/cqrs/extension/zap"
)

type app struct {
	cfg       config.Config
	zapLogger *zap.Logger
	logger    cqrs.Logger
	metrics   *cqrsPrometheus.Metrics
	registry  *cqrs.EventRegistry
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Library example publishing and projecting author events",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.zapLogger.Sync()
		},
	}
	root.AddCommand(
		newConsumeCommand(a),
		newCreateAuthorCommand(a),
		newFindAuthorCommand(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if a.zapLogger != nil {
			a.zapLogger.With(zap.Error(err)).Error("command failed")
		} else {
			_, _ = os.Stderr.WriteString(err.Error() + "\n")
		}
		stop()
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zapLogger, err := cfg.NewLogger()
	if err != nil {
		return err
	}

	registry := cqrs.NewEventRegistry()
	if err := domain.RegisterEvents(registry); err != nil {
		return err
	}

	a.cfg = cfg
	a.zapLogger = zapLogger
	a.logger = cqrsZap.Wrap(zapLogger)
	a.metrics = cqrsPrometheus.NewMetrics()
	a.registry = registry

	return nil
}

func (a *app) topology() amqp.Topology {
	return amqp.Topology{
		Exchange: a.cfg.Exchange,
		Kind:     "fanout",
		Queues:   []string{a.cfg.Queue},
	}
}

// serveMetrics exposes the prometheus registry until ctx is done
func (a *app) serveMetrics(ctx context.Context) error {
	registry := prometheus.NewRegistry()
	if err := a.metrics.RegisterMetrics(registry); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.zapLogger.With(zap.Error(err)).Warn("metrics server stopped")
		}
	}()

	return nil
}
