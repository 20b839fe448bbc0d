package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/Clark-Hu/movie-directory/internal/browse"
	"github.com/Clark-Hu/movie-directory/internal/cliconfig"
	"github.com/Clark-Hu/movie-directory/internal/client"
	"github.com/Clark-Hu/movie-directory/internal/logging"
	"github.com/Clark-Hu/movie-directory/internal/tui"
)

// Init writes the example configuration to --config.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := cliconfig.CreateConfigFile(path); err != nil {
		return err
	}
	return r.writePlain("wrote %s\n", path)
}

func queryFromFlags(cmd *cli.Command) browse.Query {
	return browse.DefaultQuery().
		WithFilters(cmd.String("year"), cmd.String("genre"), cmd.String("director")).
		WithPage(cmd.Int("page"))
}

// MoviesList prints one page of search results.
func (r *Runner) MoviesList(ctx context.Context, cmd *cli.Command) error {
	c, cfg, err := r.client(cmd)
	if err != nil {
		return err
	}
	size := cfg.Browse.PageSize
	if cmd.IsSet("size") {
		size = cmd.Int("size")
	}
	q := queryFromFlags(cmd)
	page, err := c.Search(ctx, q.SearchRequest(size))
	if err != nil {
		return describe(err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(page.Items)
	}
	if len(page.Items) == 0 {
		return r.writePlain("No movies found\n")
	}
	rows := make([][]string, len(page.Items))
	for i, m := range page.Items {
		rows[i] = []string{m.ID, m.Title, strconv.Itoa(m.Year), m.Genre, m.Director.Name}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "YEAR", "GENRE", "DIRECTOR").
		Rows(rows...)
	return r.writePlain("%s\nPage %d of %d\n", t.String(), q.Page, page.TotalPages)
}

// MoviesGet prints a single movie.
func (r *Runner) MoviesGet(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	m, err := c.Get(ctx, id)
	if err != nil {
		return describe(err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(m)
	}
	return r.printMovie(m)
}

// MoviesCreate validates the flags the way the edit form does and creates the movie.
func (r *Runner) MoviesCreate(ctx context.Context, cmd *cli.Command) error {
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	form := browse.NewMovieForm(nil, nil, r.logger)
	form.SetValues(valuesFromFlags(cmd, browse.FormValues{}))
	in, ok := form.Validate()
	if !ok {
		return formError(form)
	}
	m, err := c.Create(ctx, in)
	if err != nil {
		return describe(err)
	}
	if err := r.writePlain("Movie created successfully!\n"); err != nil {
		return err
	}
	return r.printMovie(m)
}

// MoviesUpdate loads the movie, overlays the set flags and saves.
func (r *Runner) MoviesUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	current, err := c.Get(ctx, id)
	if err != nil {
		return describe(err)
	}
	form := browse.LoadMovieForm(current, nil, nil, r.logger)
	form.Edit()
	form.SetValues(valuesFromFlags(cmd, form.Values()))
	in, ok := form.Validate()
	if !ok {
		return formError(form)
	}
	m, err := c.Update(ctx, id, in)
	if err != nil {
		return describe(err)
	}
	if err := r.writePlain("Movie updated successfully!\n"); err != nil {
		return err
	}
	return r.printMovie(m)
}

// MoviesDelete asks for confirmation unless --yes is given.
func (r *Runner) MoviesDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	if !cmd.Bool("yes") {
		if err := r.writePlain("Delete movie %s? [y/N] ", id); err != nil {
			return err
		}
		if !confirm(cmd.Root().Reader) {
			return r.writePlain("Cancelled\n")
		}
	}
	if err := c.Delete(ctx, id); err != nil {
		return describe(err)
	}
	return r.writePlain("Movie deleted!\n")
}

// MoviesReport writes the CSV report to --output or stdout.
func (r *Runner) MoviesReport(ctx context.Context, cmd *cli.Command) error {
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	var w io.Writer = r.output
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	req := queryFromFlags(cmd).SearchRequest(client.DefaultPageSize)
	if err := c.Report(ctx, req, w); err != nil {
		return describe(err)
	}
	return nil
}

// MoviesImport uploads a JSON file of movies.
func (r *Runner) MoviesImport(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "file")
	if err != nil {
		return err
	}
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	res, err := c.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return describe(err)
	}
	return r.writePlain("Imported %d movies, %d failed\n", res.Success, res.Failed)
}

// DirectorsList prints the director options.
func (r *Runner) DirectorsList(ctx context.Context, cmd *cli.Command) error {
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	ds, err := c.Directors(ctx)
	if err != nil {
		return describe(err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(ds)
	}
	rows := make([][]string, len(ds))
	for i, d := range ds {
		country := ""
		if d.Country != nil {
			country = *d.Country
		}
		rows[i] = []string{d.ID, d.Name, country}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "COUNTRY").
		Rows(rows...)
	return r.writePlain("%s\n", t.String())
}

// Profile prints the user behind the session.
func (r *Runner) Profile(ctx context.Context, cmd *cli.Command) error {
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	p, err := c.Profile(ctx)
	if err != nil {
		return describe(err)
	}
	return r.writePlain("%s <%s>\n", p.Name, p.Email)
}

// Browse opens the interactive browser. Logs go to a file so they do not
// interfere with rendering. On exit the query to resume from is printed.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	q, err := browse.ParseQuery(cmd.String("query"))
	if err != nil {
		return err
	}
	c, _, err := r.client(cmd)
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(cmd.String("log-file"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	model := tui.NewModel(ctx, c, q, logging.New(logFile, "browse"))
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running browser: %w", err)
	}
	return r.printResume(model.Location())
}

func (r *Runner) printResume(location string) error {
	if location == "" {
		return nil
	}
	return r.writePlain("moviectl browse --query %q\n", location)
}

func (r *Runner) printMovie(m client.Movie) error {
	return r.writePlain("ID:       %s\nTitle:    %s\nYear:     %d\nGenre:    %s\nDirector: %s\n",
		m.ID, m.Title, m.Year, m.Genre, m.Director.Name)
}

func valuesFromFlags(cmd *cli.Command, base browse.FormValues) browse.FormValues {
	if cmd.IsSet("title") {
		base.Title = cmd.String("title")
	}
	if cmd.IsSet("year") {
		base.Year = cmd.String("year")
	}
	if cmd.IsSet("genre") {
		base.Genre = cmd.String("genre")
	}
	if cmd.IsSet("director") {
		base.DirectorID = cmd.String("director")
	}
	return base
}

func formError(form *browse.EditForm) error {
	var msgs []string
	for _, field := range browse.Fields {
		if msg := form.FieldError(field); msg != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return fmt.Errorf("invalid movie:\n  %s", strings.Join(msgs, "\n  "))
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().First())
	if v == "" {
		return "", fmt.Errorf("missing <%s> argument", name)
	}
	return v, nil
}

func confirm(in io.Reader) bool {
	if in == nil {
		in = os.Stdin
	}
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
