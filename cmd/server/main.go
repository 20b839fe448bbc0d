package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/movie-directory/db"
	"github.com/Clark-Hu/movie-directory/internal/config"
	httpserver "github.com/Clark-Hu/movie-directory/internal/http"
	"github.com/Clark-Hu/movie-directory/internal/logging"
	"github.com/Clark-Hu/movie-directory/internal/notify"
	"github.com/Clark-Hu/movie-directory/internal/repository"
	"github.com/Clark-Hu/movie-directory/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stdout, "movies-api")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", "err", err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		logger.Fatal("connect database", "err", err)
	}
	defer st.Close()

	if cfg.DBMigrate {
		if _, err := st.Migrate(dbCtx, db.Migrations()); err != nil {
			logger.Fatal("migrate database", "err", err)
		}
	}

	var publisher notify.Publisher = notify.Noop{}
	if cfg.AMQPURL != "" {
		broker, err := notify.Dial(cfg.AMQPURL, cfg.NotifyQueue, logger)
		if err != nil {
			logger.Fatal("connect broker", "err", err)
		}
		defer broker.Close()
		publisher = broker
	}

	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			logger.Fatal("listen grpc health", "err", err)
		}
		hs := httpserver.NewHealthService(st, logger)
		go func() {
			if err := hs.Serve(ctx, lis); err != nil {
				logger.Error("grpc health stopped", "err", err)
			}
		}()
	}

	repo := repository.New(st)
	server := httpserver.New(cfg, st, repo, publisher, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", "err", err)
	}
}
