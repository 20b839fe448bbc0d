// Package client talks to the movie directory API, directly or through the gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Clark-Hu/movie-directory/internal/auth"
)

// ErrNotFound is returned when the API cannot find the requested resource.
var ErrNotFound = errors.New("client: not found")

// DefaultPageSize is the page size used by interactive browsing.
const DefaultPageSize = 10

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

// DirectorRef is the director embedded in a movie.
type DirectorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Movie struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Year     int         `json:"year"`
	Genre    string      `json:"genre"`
	Director DirectorRef `json:"director"`
}

type Director struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Country *string `json:"country,omitempty"`
}

// MovieInput is the body of create and update requests.
type MovieInput struct {
	Title      string `json:"title"`
	Year       int    `json:"year"`
	Genre      string `json:"genre"`
	DirectorID string `json:"directorId"`
}

// SearchRequest is the body of POST /movies/_list. Page is 0-based; nil
// filters are sent as null.
type SearchRequest struct {
	Page       int     `json:"page"`
	Size       int     `json:"size"`
	Year       *string `json:"year"`
	Genre      *string `json:"genre"`
	DirectorID *string `json:"directorId"`
}

// MoviePage is one page of search results.
type MoviePage struct {
	Items      []Movie
	TotalPages int
}

// UploadResult counts imported and rejected movies.
type UploadResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Profile is the signed-in user as reported by the gateway.
type Profile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// HTTPClient implements the movie directory API over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	token   string
	cookie  string
	client  *http.Client
	logger  *log.Logger
}

// Option customises an HTTPClient.
type Option func(*HTTPClient)

// WithBearerToken sends token as Authorization on every request.
func WithBearerToken(token string) Option {
	return func(c *HTTPClient) { c.token = token }
}

// WithSessionCookie sends a gateway session cookie on every request.
func WithSessionCookie(value string) Option {
	return func(c *HTTPClient) { c.cookie = value }
}

// New constructs a client rooted at baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, timeout time.Duration, logger *log.Logger, opts ...Option) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	c := &HTTPClient{
		baseURL: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search runs a filtered, paged movie search. The canonical result key is
// "content"; the legacy "list" key is accepted. Missing totals count as one page.
func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) (MoviePage, error) {
	var payload struct {
		Content    []Movie `json:"content"`
		List       []Movie `json:"list"`
		TotalPages int     `json:"totalPages"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/movies/_list", req, &payload); err != nil {
		return MoviePage{}, err
	}
	items := payload.Content
	if items == nil {
		items = payload.List
	}
	if items == nil {
		items = []Movie{}
	}
	total := payload.TotalPages
	if total <= 0 {
		total = 1
	}
	return MoviePage{Items: items, TotalPages: total}, nil
}

func (c *HTTPClient) Get(ctx context.Context, id string) (Movie, error) {
	var m Movie
	err := c.doJSON(ctx, http.MethodGet, "/movies/"+url.PathEscape(id), nil, &m)
	return m, err
}

func (c *HTTPClient) Create(ctx context.Context, in MovieInput) (Movie, error) {
	var m Movie
	err := c.doJSON(ctx, http.MethodPost, "/movies", in, &m)
	return m, err
}

func (c *HTTPClient) Update(ctx context.Context, id string, in MovieInput) (Movie, error) {
	var m Movie
	err := c.doJSON(ctx, http.MethodPut, "/movies/"+url.PathEscape(id), in, &m)
	return m, err
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/movies/"+url.PathEscape(id), nil, nil)
}

// Directors lists every director.
func (c *HTTPClient) Directors(ctx context.Context) ([]Director, error) {
	var out []Director
	if err := c.doJSON(ctx, http.MethodGet, "/directors", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Director{}
	}
	return out, nil
}

// Report streams the CSV report for the filters in req into w.
func (c *HTTPClient) Report(ctx context.Context, req SearchRequest, w io.Writer) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPost, "/movies/_report", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	return nil
}

// Upload imports a JSON array of movies.
func (c *HTTPClient) Upload(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, err
	}

	resp, err := c.send(ctx, http.MethodPost, "/movies/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		return UploadResult{}, err
	}
	defer resp.Body.Close()
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	return out, nil
}

// Profile fetches the signed-in user from the gateway root, outside the API prefix.
func (c *HTTPClient) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.doJSONAt(ctx, http.MethodGet, c.rootURL("/profile"), nil, &p)
	return p, err
}

func (c *HTTPClient) rootURL(path string) string {
	u := *c.baseURL
	u.Path = path
	u.RawQuery = ""
	return u.String()
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	return c.doJSONAt(ctx, method, c.baseURL.String()+path, in, out)
}

func (c *HTTPClient) doJSONAt(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	resp, err := c.sendURL(ctx, method, endpoint, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, endpoint, err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	return c.sendURL(ctx, method, c.baseURL.String()+path, contentType, body)
}

// sendURL performs the request and converts non-2xx responses into errors.
func (c *HTTPClient) sendURL(ctx context.Context, method, endpoint, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: c.cookie})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr); err != nil {
		c.logger.Debug("non-json error body", "status", resp.StatusCode, "endpoint", endpoint)
	}
	apiErr.Status = resp.StatusCode
	return nil, apiErr
}
