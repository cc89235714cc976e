package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"marketparticipant/internal/app"
	"marketparticipant/internal/identity"
	"marketparticipant/internal/platform/config"
	"marketparticipant/internal/platform/httpserver"
	"marketparticipant/internal/platform/kafka"
	"marketparticipant/internal/platform/logger"
	"marketparticipant/internal/platform/metrics"
	"marketparticipant/internal/platform/postgres"
	"marketparticipant/internal/platform/redis"
	"marketparticipant/internal/reservation"
	reservationstore "marketparticipant/internal/reservation/store"
)

var version = "dev"

// main wires the stores, services and workers and supervises them until a
// signal arrives. The domain services are consumed in process; only the
// operational endpoints are served over HTTP.
func main() {
	envFile := flag.String("env-file", ".env", "environment file loaded before the process environment")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "marketparticipant: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log, logCloser := logger.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	roles, err := identity.Load(cfg.RoleMapPath)
	if err != nil {
		return fmt.Errorf("load role map: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := metrics.New(version)
	checks := map[string]httpserver.Check{"postgres": db.PingContext}

	var reservations reservation.Store
	redisClient, err := redis.Open(ctx, cfg.Redis, reg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		reservations = reservationstore.NewRedis(redisClient)
		checks["redis"] = redis.Ping(redisClient)
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	opts := app.Options{
		Logger:                log,
		Registerer:            reg,
		Roles:                 roles,
		ConsolidationInterval: cfg.Consolidation.Interval,
		OutboxInterval:        cfg.Outbox.Interval,
		OutboxBatchSize:       cfg.Outbox.BatchSize,
	}
	if producer != nil {
		defer producer.Close()
		opts.Producer = producer
		checks["kafka"] = producer.Health
	}

	a := app.NewPostgres(db, reservations, cfg.Postgres.TxTimeout, opts)
	srv := httpserver.New(cfg.Server.Addr, httpserver.NewRouter(reg, checks, log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(ctx, "ops server listening", "addr", cfg.Server.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return a.Scheduler.Run(ctx)
	})
	if a.Relay != nil {
		g.Go(func() error {
			return a.Relay.Run(ctx)
		})
	} else {
		log.WarnContext(ctx, "no kafka brokers configured, outbox relay disabled")
	}

	err = g.Wait()
	log.Info("shutdown complete")
	return err
}
