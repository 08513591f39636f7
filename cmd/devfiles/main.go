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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yourname/devfiles/internal/app/devhttp"
	"github.com/yourname/devfiles/internal/config"
	"github.com/yourname/devfiles/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// main поднимает файловый сервер сборки и обеспечивает корректное завершение по сигналу.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad log level")
	}
	logger := log.Logger.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, srv, err := devhttp.NewServer(ctx, cfg, devhttp.Deps{
		Logger:  logger,
		Metrics: metrics.NewPrometheus(reg),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build server")
	}

	servers := []*http.Server{{Addr: cfg.ListenAddr, Handler: handler}}
	if cfg.MetricsAddr != "" {
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(reg)})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, server := range servers {
		g.Go(func() error {
			logger.Info().Str("addr", server.Addr).Msg("Listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return srv.Watch(gctx)
	})

	// Сценарий graceful shutdown при получении SIGTERM/SIGINT или падении одного из серверов.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		for _, server := range servers {
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn().Err(err).Str("addr", server.Addr).Msg("Shutdown error")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
	logger.Info().Msg("Stopped")
}
