package browse

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/Clark-Hu/movie-directory/internal/client"
)

// Directory is the movie service as seen by the browser.
type Directory interface {
	Search(ctx context.Context, req client.SearchRequest) (client.MoviePage, error)
	Get(ctx context.Context, id string) (client.Movie, error)
	Create(ctx context.Context, in client.MovieInput) (client.Movie, error)
	Update(ctx context.Context, id string, in client.MovieInput) (client.Movie, error)
	Delete(ctx context.Context, id string) error
	Directors(ctx context.Context) ([]client.Director, error)
}

const (
	msgDeleted     = "Movie deleted!"
	msgDeleteError = "Delete error"
)

// SearchCall is a search the list view wants issued. Seq orders calls so
// that only the newest response is applied.
type SearchCall struct {
	Seq     uint64
	Request client.SearchRequest
}

// ListView is the state behind the movie list: the query, the current page,
// the director filter options and the pending delete confirmation.
type ListView struct {
	query      Query
	pageSize   int
	items      []client.Movie
	totalPages int
	directors  []client.Director
	pending    string
	seq        uint64

	Notifier *Notifier
	logger   *log.Logger
}

func NewListView(q Query, notifier *Notifier, logger *log.Logger) *ListView {
	if q.Page < 1 {
		q.Page = 1
	}
	if notifier == nil {
		notifier = NewNotifier(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ListView{
		query:      q,
		pageSize:   client.DefaultPageSize,
		items:      []client.Movie{},
		totalPages: 1,
		Notifier:   notifier,
		logger:     logger,
	}
}

func (l *ListView) Query() Query                 { return l.query }
func (l *ListView) Items() []client.Movie        { return l.items }
func (l *ListView) TotalPages() int              { return l.totalPages }
func (l *ListView) Directors() []client.Director { return l.directors }

// Location is the canonical encoding of the current query: only the fields
// that differ from the default, empty when nothing does.
func (l *ListView) Location() string { return l.query.Encode() }

// DirectorOption is one choice of the director filter. The empty ID is "All".
type DirectorOption struct {
	ID   string
	Name string
}

// DirectorOptions lists "All" followed by the loaded directors.
func (l *ListView) DirectorOptions() []DirectorOption {
	opts := make([]DirectorOption, 0, len(l.directors)+1)
	opts = append(opts, DirectorOption{Name: "All"})
	for _, d := range l.directors {
		opts = append(opts, DirectorOption{ID: d.ID, Name: d.Name})
	}
	return opts
}

// Mount shows the pending flash message, if any, and returns the initial search.
func (l *ListView) Mount(mb Mailbox) SearchCall {
	if mb != nil {
		if msg, ok := mb.Take(); ok {
			l.Notifier.Success(msg)
		}
	}
	return l.Replace(l.query)
}

// Replace installs q as the current query and returns the search for it.
func (l *ListView) Replace(q Query) SearchCall {
	if q.Page < 1 {
		q.Page = 1
	}
	l.query = q
	l.seq++
	return SearchCall{Seq: l.seq, Request: q.SearchRequest(l.pageSize)}
}

// ApplyFilter submits the filter inputs; the page resets to 1.
func (l *ListView) ApplyFilter(year, genre, directorID string) SearchCall {
	return l.Replace(l.query.WithFilters(year, genre, directorID))
}

// GoToPage keeps the filters and moves to page.
func (l *ListView) GoToPage(page int) SearchCall {
	return l.Replace(l.query.WithPage(page))
}

// Refresh re-issues the current query.
func (l *ListView) Refresh() SearchCall {
	return l.Replace(l.query)
}

// ResolveSearch applies a search response. Responses to superseded calls are
// dropped, and failures are logged with the previous results left in place.
// It reports whether the response was applied.
func (l *ListView) ResolveSearch(call SearchCall, page client.MoviePage, err error) bool {
	if call.Seq != l.seq {
		l.logger.Debug("dropping stale search response", "seq", call.Seq, "latest", l.seq)
		return false
	}
	if err != nil {
		l.logger.Error("search movies", "err", err)
		return false
	}
	l.items = page.Items
	if l.items == nil {
		l.items = []client.Movie{}
	}
	l.totalPages = page.TotalPages
	if l.totalPages < 1 {
		l.totalPages = 1
	}
	return true
}

// SetDirectors stores the filter options. A failed load leaves them empty.
func (l *ListView) SetDirectors(ds []client.Director, err error) {
	if err != nil {
		l.logger.Error("load directors", "err", err)
		l.directors = nil
		return
	}
	l.directors = ds
}

// RequestDelete opens the confirmation for id.
func (l *ListView) RequestDelete(id string) {
	l.pending = id
}

// CancelDelete closes the confirmation without a request.
func (l *ListView) CancelDelete() {
	l.pending = ""
}

// PendingDelete returns the movie awaiting confirmation.
func (l *ListView) PendingDelete() (string, bool) {
	return l.pending, l.pending != ""
}

// ResolveDelete applies the outcome of deleting id. Success closes the
// confirmation and returns a refresh of the same query. Failure keeps the
// target so the user can retry or cancel.
func (l *ListView) ResolveDelete(id string, err error) (SearchCall, bool) {
	if err != nil {
		l.logger.Error("delete movie", "id", id, "err", err)
		l.Notifier.Error(msgDeleteError)
		return SearchCall{}, false
	}
	if l.pending == id {
		l.pending = ""
	}
	l.Notifier.Success(msgDeleted)
	return l.Refresh(), true
}

// Load runs call against dir and applies the result.
func (l *ListView) Load(ctx context.Context, dir Directory, call SearchCall) bool {
	page, err := dir.Search(ctx, call.Request)
	return l.ResolveSearch(call, page, err)
}

// LoadDirectors fetches the director filter options.
func (l *ListView) LoadDirectors(ctx context.Context, dir Directory) {
	ds, err := dir.Directors(ctx)
	l.SetDirectors(ds, err)
}

// ConfirmDelete deletes the pending movie and refreshes on success.
func (l *ListView) ConfirmDelete(ctx context.Context, dir Directory) error {
	id, ok := l.PendingDelete()
	if !ok {
		return nil
	}
	err := dir.Delete(ctx, id)
	if call, ok := l.ResolveDelete(id, err); ok {
		l.Load(ctx, dir, call)
	}
	return err
}
