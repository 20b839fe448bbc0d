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
	"golang.org/x/oauth2/endpoints"

	"github.com/Clark-Hu/movie-directory/internal/auth"
	"github.com/Clark-Hu/movie-directory/internal/config"
	"github.com/Clark-Hu/movie-directory/internal/gateway"
	"github.com/Clark-Hu/movie-directory/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stdout, "gateway")

	cfg, err := config.LoadGateway()
	if err != nil {
		logger.Fatal("config error", "err", err)
	}

	verifier := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	gw, err := gateway.New(cfg, endpoints.Google, verifier, logger)
	if err != nil {
		logger.Fatal("init gateway", "err", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "movies", cfg.MoviesURL, "reviews", cfg.ReviewsURL)
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
