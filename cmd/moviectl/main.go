// Command moviectl manages the movie directory from the terminal.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/Clark-Hu/movie-directory/internal/client"
	"github.com/Clark-Hu/movie-directory/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, "moviectl")
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.App().Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			logger.Error("not found")
			os.Exit(2)
		}
		logger.Fatal("moviectl failed", "err", err)
	}
}
