package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetcomply/internal/compliance/expiry"
	"fleetcomply/internal/compliance/service"
	"fleetcomply/internal/compliance/store/postgres"
	"fleetcomply/internal/notification"
	"fleetcomply/internal/notification/publisher"
	"fleetcomply/internal/platform/config"
	"fleetcomply/internal/platform/httpserver"
	"fleetcomply/internal/platform/jwt"
	"fleetcomply/internal/platform/logger"
	"fleetcomply/internal/platform/metrics"
	platformpg "fleetcomply/internal/platform/postgres"
	platformredis "fleetcomply/internal/platform/redis"
	transport "fleetcomply/internal/transport/http"
)

// main wires dependencies and supervises the HTTP server and the expiry
// worker. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := platformpg.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := postgres.New(db)

	var pub notification.Publisher
	if cfg.KafkaBrokers != "" {
		kafka, err := publisher.NewKafka(strings.Split(cfg.KafkaBrokers, ","), notification.Topic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		pub = kafka
	} else {
		pub = publisher.NewLogging(log)
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithPublisher(pub),
		service.WithMetrics(metrics.New()),
	}
	if cache := platformredis.NewReportCache(redisClient); cache != nil {
		opts = append(opts, service.WithReportCache(cache))
	}
	svc := service.New(store.Stores(), opts...)

	validator := jwt.NewService(cfg.JWTSigningKey, "fleetcomply")
	router := transport.New(svc, log).Router(validator, store)
	srv := httpserver.New(cfg.Addr, router)

	worker := expiry.New(svc, expiry.WithLogger(log), expiry.WithInterval(cfg.SweepInterval))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting fleetcomply", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Start(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("fleetcomply stopped")
}
