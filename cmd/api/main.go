// Command api serves the shipment leg state machine and the courier COD
// reconciliation ledger over HTTP.
//
//	@title						Shipment Legs API
//	@version					1.0
//	@description				Multi-leg shipment lifecycle, tracking code verification and courier COD reconciliation.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/99minutos/shipment-legs/docs"
	"github.com/99minutos/shipment-legs/internal/api"
	"github.com/99minutos/shipment-legs/internal/api/handler"
	"github.com/99minutos/shipment-legs/internal/core/ports"
	"github.com/99minutos/shipment-legs/internal/core/service"
	"github.com/99minutos/shipment-legs/internal/infrastructure/db/mongo"
	"github.com/99minutos/shipment-legs/internal/infrastructure/db/redis"
	"github.com/99minutos/shipment-legs/internal/infrastructure/lock"
	"github.com/99minutos/shipment-legs/internal/infrastructure/queue"
	"github.com/99minutos/shipment-legs/internal/infrastructure/storage"
	"github.com/99minutos/shipment-legs/internal/pkg/config"
	"github.com/99minutos/shipment-legs/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "shipment-legs",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- MongoDB ---
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	log.Info().Str("db", cfg.Mongo.Database).Msg("connected to mongodb")

	shipmentRepo := mongo.NewShipmentRepository(db)
	legRepo := mongo.NewLegRepository(db)
	ledgerRepo := mongo.NewLedgerRepository(db)
	proofRepo := mongo.NewProofRepository(db)
	journal := mongo.NewEventJournal(db)

	for _, ix := range []interface{ EnsureIndexes(context.Context) error }{
		shipmentRepo, legRepo, ledgerRepo, proofRepo, journal,
	} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return err
		}
	}

	health := map[string]handler.Pinger{
		"mongodb": handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
	}

	// --- Locks: Redis across instances, in-process otherwise ---
	var locker ports.Locker
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = redis.NewLocker(rdb, cfg.Lock.TTL, cfg.Lock.Wait, log.With().Str("component", "locker").Logger())
		health["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis locks")
	} else {
		locker = lock.NewLocalLocker(cfg.Lock.Wait)
		log.Warn().Msg("REDIS_ADDR not set, using in-process locks; run a single instance only")
	}

	// --- Event stream: Kafka when configured, MongoDB journal otherwise ---
	var sink queue.Sink = journal
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink := queue.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
	}
	dispatcher := queue.NewDispatcher(cfg.Events.Workers, sink, log.With().Str("component", "dispatcher").Logger())
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Stop()

	// --- Proof store ---
	proofStore, err := storage.NewS3ProofStore(ctx, storage.S3Config{
		Bucket:   cfg.Proofs.Bucket,
		Region:   cfg.Proofs.Region,
		Endpoint: cfg.Proofs.Endpoint,
		Prefix:   cfg.Proofs.Prefix,
	})
	if err != nil {
		return err
	}

	// --- Services ---
	component := func(name string) zerolog.Logger { return log.With().Str("component", name).Logger() }
	deps := api.Deps{
		Shipments:     service.NewShipmentService(shipmentRepo, legRepo, dispatcher, component("shipment_service")),
		Legs:          service.NewLegService(legRepo, locker, dispatcher, component("leg_service")),
		Ledger:        service.NewLedgerService(ledgerRepo, locker, dispatcher, component("ledger_service")),
		Proofs:        service.NewProofService(legRepo, proofRepo, proofStore, locker, dispatcher, component("proof_service")),
		Health:        health,
		JWTSecret:     cfg.JWTSecret,
		MaxProofBytes: cfg.Proofs.MaxBytes,
		Logger:        component("http"),
	}
	e := api.NewRouter(deps)

	// --- Serve until signalled ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
