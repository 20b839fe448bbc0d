package main

import "github.com/urfave/cli/v3"

// App builds the command tree.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "moviectl",
		Usage:   "Browse and manage the movie directory",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "API base URL, e.g. http://localhost:8080/api",
				Sources: cli.EnvVars("MOVIES_API_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token sent with each request",
				Sources: cli.EnvVars("MOVIES_TOKEN"),
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Gateway session cookie value",
			},
		},
		Commands: []*cli.Command{
			initCommand(r),
			moviesCommand(r),
			directorsCommand(r),
			profileCommand(r),
			browseCommand(r),
		},
	}
}

func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write an example configuration file",
		Action: r.Init,
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "year", Usage: "Filter by release year"},
		&cli.StringFlag{Name: "genre", Usage: "Filter by genre"},
		&cli.StringFlag{Name: "director", Usage: "Filter by director ID"},
	}
}

func movieFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Movie title"},
		&cli.StringFlag{Name: "year", Usage: "Release year"},
		&cli.StringFlag{Name: "genre", Usage: "Genre"},
		&cli.StringFlag{Name: "director", Usage: "Director ID"},
	}
}

func moviesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "movies",
		Aliases: []string{"m"},
		Usage:   "Movie operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Search movies one page at a time",
				Flags: append(filterFlags(),
					&cli.IntFlag{Name: "page", Usage: "Page number, starting at 1", Value: 1},
					&cli.IntFlag{Name: "size", Usage: "Page size (defaults to the config value)"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				),
				Action: r.MoviesList,
			},
			{
				Name:      "get",
				Usage:     "Show one movie",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action:    r.MoviesGet,
			},
			{
				Name:   "create",
				Usage:  "Create a movie",
				Flags:  movieFlags(),
				Action: r.MoviesCreate,
			},
			{
				Name:      "update",
				Usage:     "Update a movie; unset flags keep their current value",
				ArgsUsage: "<id>",
				Flags:     movieFlags(),
				Action:    r.MoviesUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a movie",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
				},
				Action: r.MoviesDelete,
			},
			{
				Name:  "report",
				Usage: "Download the CSV report for the filters",
				Flags: append(filterFlags(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path (default stdout)"},
				),
				Action: r.MoviesReport,
			},
			{
				Name:      "import",
				Usage:     "Upload a JSON array of movies",
				ArgsUsage: "<file>",
				Action:    r.MoviesImport,
			},
		},
	}
}

func directorsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "directors",
		Aliases: []string{"d"},
		Usage:   "Director operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List directors",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.DirectorsList,
			},
		},
	}
}

func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "profile",
		Usage:  "Show the signed-in user",
		Action: r.Profile,
	}
}

func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Open the interactive movie browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-file", Usage: "Where to write logs while the browser is open", Value: "moviectl.log"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Start from an encoded list query, e.g. \"page=2&genre=Drama\""},
		},
		Action: r.Browse,
	}
}
