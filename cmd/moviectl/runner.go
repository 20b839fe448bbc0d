package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/Clark-Hu/movie-directory/internal/cliconfig"
	"github.com/Clark-Hu/movie-directory/internal/client"
)

const defaultConfigPath = "moviectl.toml"

// Runner holds the dependencies shared by every command action.
type Runner struct {
	logger *log.Logger
	output io.Writer
}

type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{logger: opts.Logger, output: opts.Output}
}

// loadConfig reads --config, falling back to the embedded defaults when the
// default path does not exist. Flags override file values.
func (r *Runner) loadConfig(cmd *cli.Command) (*cliconfig.Config, error) {
	path := cmd.String("config")
	cfg := cliconfig.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := cliconfig.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if cmd.IsSet("config") {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if cmd.IsSet("base-url") {
		cfg.API.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("token") {
		cfg.API.Token = cmd.String("token")
	}
	if cmd.IsSet("session") {
		cfg.API.Session = cmd.String("session")
	}
	return cfg, nil
}

func (r *Runner) client(cmd *cli.Command) (*client.HTTPClient, *cliconfig.Config, error) {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	var opts []client.Option
	if cfg.API.Token != "" {
		opts = append(opts, client.WithBearerToken(cfg.API.Token))
	}
	if cfg.API.Session != "" {
		opts = append(opts, client.WithSessionCookie(cfg.API.Session))
	}
	c, err := client.New(cfg.API.BaseURL, cfg.API.Timeout.Duration, r.logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := fmt.Fprintln(r.output, string(output)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// describe turns API errors into messages for the terminal.
func describe(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && len(apiErr.Details) > 0 {
		msg := apiErr.Message
		for field, detail := range apiErr.Details {
			msg += fmt.Sprintf("\n  %s: %s", field, detail)
		}
		return fmt.Errorf("%w\n%s", err, msg)
	}
	return err
}
