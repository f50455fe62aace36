package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zijiegan/library-catalog/config"
	"github.com/zijiegan/library-catalog/internal/handler"
	"github.com/zijiegan/library-catalog/internal/repository"
	"github.com/zijiegan/library-catalog/internal/server"
	"github.com/zijiegan/library-catalog/internal/service"
	"github.com/zijiegan/library-catalog/migrations"
	"github.com/zijiegan/library-catalog/pkg/kafka"
	"github.com/zijiegan/library-catalog/pkg/logger"
	"github.com/zijiegan/library-catalog/pkg/payment"
	"github.com/zijiegan/library-catalog/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library-catalog")

	var store repository.Storage
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		if !cfg.Catalog.FallbackEnabled {
			log.Fatal("db init", zap.Error(err))
		}
		// Degraded mode: serve the seeded in-memory catalog until the
		// database comes back. State is lost on restart.
		log.Warn("db init failed, serving in-memory catalog", zap.Error(err))
		mem := repository.NewMemoryStorage()
		mem.Seed()
		store = mem
	} else {
		defer db.Close()
		repo, err := repository.NewRepository(db, log)
		if err != nil {
			log.Fatal("repo", zap.Error(err))
		}
		store = repo
	}

	gateway := payment.NewSimulatedGateway(cfg.Catalog.GatewayAPIKey, cfg.Catalog.GatewayLatency)

	var audit kafka.Enqueuer = kafka.NopEnqueuer{}
	if len(cfg.Kafka.Addrs) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		defer producer.Close()
		audit = kafka.NewEnqueuer(producer)
	}

	opts := []service.Option{
		service.WithAudit(audit),
		service.WithRefundCeiling(cfg.Catalog.RefundCeiling),
	}
	if cfg.Catalog.FallbackEnabled {
		opts = append(opts, service.WithFallback(repository.NewMemoryStorage()))
	}
	if cfg.Catalog.FeeRoundRobin {
		opts = append(opts, service.WithNoRecordPolicy(service.NewRoundRobinNoRecord()))
	}
	svc := service.NewService(store, gateway, log, opts...)

	h := handler.New(svc, svc, svc, svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}
