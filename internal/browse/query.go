// Package browse holds the client-side state of the movie browser: the
// search query, the current page of results, the edit form, and the
// one-shot messages passed between views.
package browse

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Clark-Hu/movie-directory/internal/client"
)

// Query is the filter and pagination state of the list view. Page is 1-based.
type Query struct {
	Page       int
	Year       string
	Genre      string
	DirectorID string
}

// DefaultQuery is page 1 with no filters.
func DefaultQuery() Query {
	return Query{Page: 1}
}

// QueryFromValues seeds a query from URL parameters. Missing or invalid pages become 1.
func QueryFromValues(v url.Values) Query {
	q := DefaultQuery()
	if p, err := strconv.Atoi(v.Get("page")); err == nil && p >= 1 {
		q.Page = p
	}
	q.Year = v.Get("year")
	q.Genre = v.Get("genre")
	q.DirectorID = v.Get("directorId")
	return q
}

// ParseQuery seeds a query from an encoded query string such as
// "page=2&genre=Drama". A leading "?" is allowed.
func ParseQuery(raw string) (Query, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(raw), "?"))
	if err != nil {
		return Query{}, fmt.Errorf("invalid query %q: %w", raw, err)
	}
	return QueryFromValues(v), nil
}

// Values serializes only the fields that differ from the default.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Year != "" {
		v.Set("year", q.Year)
	}
	if q.Genre != "" {
		v.Set("genre", q.Genre)
	}
	if q.DirectorID != "" {
		v.Set("directorId", q.DirectorID)
	}
	return v
}

// Encode is Values().Encode().
func (q Query) Encode() string {
	return q.Values().Encode()
}

// WithFilters applies submitted filter input. The genre's first letter is
// uppercased and the page goes back to 1.
func (q Query) WithFilters(year, genre, directorID string) Query {
	return Query{
		Page:       1,
		Year:       strings.TrimSpace(year),
		Genre:      CapitalizeFirst(strings.TrimSpace(genre)),
		DirectorID: strings.TrimSpace(directorID),
	}
}

// WithPage changes only the page. Pages below 1 are clamped.
func (q Query) WithPage(page int) Query {
	if page < 1 {
		page = 1
	}
	q.Page = page
	return q
}

// SearchRequest converts the query into a service request: 0-based page,
// and blank filters sent as null.
func (q Query) SearchRequest(size int) client.SearchRequest {
	page := q.Page - 1
	if page < 0 {
		page = 0
	}
	return client.SearchRequest{
		Page:       page,
		Size:       size,
		Year:       optional(q.Year),
		Genre:      optional(q.Genre),
		DirectorID: optional(q.DirectorID),
	}
}

// CapitalizeFirst uppercases the first rune and leaves the rest untouched.
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
