package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/bookshelf/bookshelf/config"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/events"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/handler"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/repository"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/server"
	"github.com/Astemirdum/bookshelf/bookshelf/internal/service"
	"github.com/Astemirdum/bookshelf/bookshelf/migrations"
	"github.com/Astemirdum/bookshelf/pkg/kafka"
	"github.com/Astemirdum/bookshelf/pkg/logger"
	"github.com/Astemirdum/bookshelf/pkg/postgres"
)

const stopTimeout = 5 * time.Second

type journal interface {
	service.Publisher
	Close() error
}

func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "bookshelf")
	defer log.Sync() //nolint:errcheck

	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles, log)
	if err != nil {
		return errors.Wrap(err, "db init")
	}
	defer db.Close()

	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return errors.Wrap(err, "repo")
	}

	jr := newJournal(cfg.Kafka, log)
	defer func() {
		if err := jr.Close(); err != nil {
			log.Warn("journal close", zap.Error(err))
		}
	}()

	svc := service.NewService(repo, jr, log)

	shutdown := make(chan struct{})
	var shutdownOnce sync.Once
	h := handler.New(svc, log, handler.WithShutdown(func() {
		shutdownOnce.Do(func() { close(shutdown) })
	}, cfg.Server.ShutdownDelay))

	srv := server.NewServer(cfg.Server, h.NewRouter())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sig)

	g, gCtx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		log.Info("http server start ON: ",
			zap.String("addr",
				net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
		return srv.Run()
	})
	g.Go(func() error {
		select {
		case termSig := <-sig:
			log.Debug("Graceful shutdown", zap.Any("signal", termSig))
		case <-shutdown:
			log.Info("Graceful shutdown requested over http")
		case <-gCtx.Done():
		}

		closeCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return srv.Stop(closeCtx)
	})

	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "server")
	}
	log.Info("Graceful shutdown finished")
	return nil
}

// newJournal never fails: without a reachable broker events are discarded.
func newJournal(cfg kafka.Config, log *zap.Logger) journal {
	if !cfg.Enabled() {
		log.Info("kafka addrs not set, lending journal disabled")
		return events.Discard{}
	}
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		log.Warn("kafka unavailable, lending journal disabled",
			zap.Strings("addrs", cfg.Addrs), zap.Error(err))
		return events.Discard{}
	}
	return events.NewJournal(producer, cfg.Topic, log)
}
