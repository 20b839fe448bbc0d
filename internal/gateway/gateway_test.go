package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Clark-Hu/movie-directory/internal/auth"
	"github.com/Clark-Hu/movie-directory/internal/config"
	"github.com/Clark-Hu/movie-directory/internal/logging"
)

type stubVerifier map[string]auth.Identity

func (s stubVerifier) Verify(_ context.Context, raw string) (auth.Identity, error) {
	id, ok := s[raw]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

type upstreamHit struct {
	Upstream      string `json:"upstream"`
	Path          string `json:"path"`
	Authorization string `json:"authorization"`
}

func echoUpstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(upstreamHit{Upstream: name, Path: r.URL.RequestURI(), Authorization: r.Header.Get("Authorization")})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	gw       *Gateway
	provider *httptest.Server
	idToken  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{idToken: "google-id-token"}
	h.provider = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     h.idToken,
		})
	}))
	t.Cleanup(h.provider.Close)

	cfg := config.GatewayConfig{
		MoviesURL:          echoUpstream(t, "movies").URL,
		ReviewsURL:         echoUpstream(t, "reviews").URL,
		FrontendURL:        echoUpstream(t, "frontend").URL,
		GoogleClientID:     "client",
		GoogleClientSecret: "secret",
		RedirectURL:        "http://gateway.test/login/oauth2/code/google",
		SuccessURL:         "http://app.test/",
		SessionSecret:      "0123456789abcdef0123456789abcdef",
		SessionTTLMins:     60,
	}
	endpoint := oauth2.Endpoint{
		AuthURL:   h.provider.URL + "/auth",
		TokenURL:  h.provider.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	verifier := stubVerifier{h.idToken: {Subject: "u1", Name: "Ada", Email: "ada@example.com", Picture: "p.png"}}
	gw, err := New(cfg, endpoint, verifier, logging.Discard())
	require.NoError(t, err)
	h.gw = gw
	return h
}

func (h *harness) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.gw.Handler().ServeHTTP(rec, req)
	return rec
}

// login runs the authorization-code flow and returns the session cookie.
func (h *harness) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := h.serve(httptest.NewRequest(http.MethodGet, loginPath, nil))
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "client", loc.Query().Get("client_id"))
	assert.Contains(t, loc.Query().Get("scope"), "openid")
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	var stateC *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			stateC = c
		}
	}
	require.NotNil(t, stateC)
	assert.Equal(t, state, stateC.Value)

	req := httptest.NewRequest(http.MethodGet, callbackPath+"?code=good-code&state="+url.QueryEscape(state), nil)
	req.AddCookie(stateC)
	rec = h.serve(req)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "http://app.test/", rec.Header().Get("Location"))
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatalf("no session cookie set")
	return nil
}

func decodeHit(t *testing.T, rec *httptest.ResponseRecorder) upstreamHit {
	t.Helper()
	var hit upstreamHit
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hit))
	return hit
}

func TestLoginFlowAndProfile(t *testing.T) {
	h := newHarness(t)

	rec := h.serve(httptest.NewRequest(http.MethodGet, "/profile", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	session := h.login(t)
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(session)
	rec = h.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, map[string]string{"name": "Ada", "email": "ada@example.com", "picture": "p.png"}, profile)

	rec = h.serve(httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestCallbackRejects(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name   string
		query  string
		cookie string
		want   int
	}{
		{name: "missing state cookie", query: "?code=good-code&state=abc", want: http.StatusBadRequest},
		{name: "state mismatch", query: "?code=good-code&state=abc", cookie: "xyz", want: http.StatusBadRequest},
		{name: "provider error", query: "?error=access_denied&state=abc", cookie: "abc", want: http.StatusBadRequest},
		{name: "bad code", query: "?code=bad&state=abc", cookie: "abc", want: http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, callbackPath+tc.query, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tc.cookie})
			}
			rec := h.serve(req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	h.idToken = "unknown-token"
	req := httptest.NewRequest(http.MethodGet, callbackPath+"?code=good-code&state=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	rec := h.serve(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProxyAuthorization(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		method string
		path   string
		want   int
		hit    string
	}{
		{method: http.MethodGet, path: "/api/movies/abc", want: http.StatusUnauthorized},
		{method: http.MethodPost, path: "/api/movies/_list", want: http.StatusUnauthorized},
		{method: http.MethodDelete, path: "/api/directors/d1", want: http.StatusUnauthorized},
		{method: http.MethodPost, path: "/reviews", want: http.StatusUnauthorized},
		{method: http.MethodGet, path: "/reviews?movieId=m1", want: http.StatusOK, hit: "reviews"},
		{method: http.MethodGet, path: "/api/reviews?movieId=m1", want: http.StatusOK, hit: "reviews"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := h.serve(httptest.NewRequest(tc.method, tc.path, nil))
			require.Equal(t, tc.want, rec.Code)
			if tc.hit != "" {
				hit := decodeHit(t, rec)
				assert.Equal(t, tc.hit, hit.Upstream)
				assert.Empty(t, hit.Authorization)
			}
		})
	}

	session := h.login(t)
	for path, upstream := range map[string]string{
		"/api/movies/_list": "movies",
		"/api/directors":    "movies",
		"/reviews/_counts":  "reviews",
		"/api/reviews":      "reviews",
	} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.AddCookie(session)
		rec := h.serve(req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		hit := decodeHit(t, rec)
		assert.Equal(t, upstream, hit.Upstream, path)
		assert.Equal(t, path, hit.Path)
		assert.Equal(t, "Bearer google-id-token", hit.Authorization, path)
	}
}

func TestFrontendRedirectsSignedOut(t *testing.T) {
	h := newHarness(t)
	rec := h.serve(httptest.NewRequest(http.MethodGet, "/movies/123", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, loginPath, rec.Header().Get("Location"))

	session := h.login(t)
	req := httptest.NewRequest(http.MethodGet, "/movies/123", nil)
	req.AddCookie(session)
	rec = h.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "frontend", decodeHit(t, rec).Upstream)
}

func TestCORS(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/movies/_list", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := h.serve(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/reviews?movieId=m1", nil)
	req.Header.Set("Origin", "http://app.test")
	rec = h.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"http://app.test"}, rec.Header().Values("Access-Control-Allow-Origin"))
}

func TestNewRejectsBadUpstream(t *testing.T) {
	cfg := config.GatewayConfig{
		MoviesURL:      "not a url",
		ReviewsURL:     "http://reviews",
		SessionSecret:  "0123456789abcdef0123456789abcdef",
		SessionTTLMins: 60,
	}
	_, err := New(cfg, oauth2.Endpoint{}, stubVerifier{}, logging.Discard())
	assert.Error(t, err)
}
