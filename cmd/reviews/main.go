package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Clark-Hu/movie-directory/db"
	"github.com/Clark-Hu/movie-directory/internal/auth"
	"github.com/Clark-Hu/movie-directory/internal/config"
	"github.com/Clark-Hu/movie-directory/internal/logging"
	"github.com/Clark-Hu/movie-directory/internal/reviews"
	"github.com/Clark-Hu/movie-directory/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stdout, "reviews-api")

	cfg, err := config.LoadReviews()
	if err != nil {
		logger.Fatal("config error", "err", err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.DBMigrate {
		if err := migrate(dbCtx, cfg.DBURL, logger); err != nil {
			logger.Fatal("migrate database", "err", err)
		}
	}

	conn, err := reviews.Open(dbCtx, cfg.DBURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		logger.Fatal("connect database", "err", err)
	}
	defer conn.Close()

	reviewStore, err := reviews.NewStore(conn, logger)
	if err != nil {
		logger.Fatal("init store", "err", err)
	}

	analyzer, err := reviews.NewNaiveBayes()
	if err != nil {
		logger.Fatal("load sentiment model", "err", err)
	}

	verifier := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	handler := reviews.NewHandler(reviewStore, analyzer, verifier, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSecs) * time.Second,
		ErrorLog:     logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown error", "err", err)
	}
}

// migrate applies the shared schema through a short-lived pgx pool; the
// review store itself runs on sqlx.
func migrate(ctx context.Context, dsn string, logger *log.Logger) error {
	st, err := store.New(ctx, dsn, store.Options{MaxConns: 1, Logger: logger})
	if err != nil {
		return err
	}
	defer st.Close()
	_, err = st.Migrate(ctx, db.Migrations())
	return err
}
