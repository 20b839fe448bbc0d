// Package gateway is the single public entry point: Google sign-in, session
// cookies, and reverse proxying to the movie and review APIs.
package gateway

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"github.com/Clark-Hu/movie-directory/internal/auth"
	"github.com/Clark-Hu/movie-directory/internal/config"
)

const (
	stateCookie  = "oauth_state"
	loginPath    = "/oauth2/authorization/google"
	callbackPath = "/login/oauth2/code/google"
)

// Gateway routes browser and API traffic.
type Gateway struct {
	oauth      *oauth2.Config
	verifier   auth.Verifier
	sessions   *auth.SessionManager
	successURL string
	secure     bool
	logger     *log.Logger
	router     *mux.Router
}

// New wires the gateway. endpoint is the OAuth provider's authorization and token URLs.
func New(cfg config.GatewayConfig, endpoint oauth2.Endpoint, verifier auth.Verifier, logger *log.Logger) (*Gateway, error) {
	if logger == nil {
		logger = log.Default()
	}
	sessions, err := auth.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLMins)*time.Minute, cfg.SecureCookies)
	if err != nil {
		return nil, err
	}
	movies, err := newProxy("movies", cfg.MoviesURL, logger)
	if err != nil {
		return nil, err
	}
	reviews, err := newProxy("reviews", cfg.ReviewsURL, logger)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier:   verifier,
		sessions:   sessions,
		successURL: cfg.SuccessURL,
		secure:     cfg.SecureCookies,
		logger:     logger,
	}

	r := mux.NewRouter()
	r.Use(g.cors)
	r.HandleFunc(loginPath, g.handleLogin).Methods(http.MethodGet)
	r.HandleFunc(callbackPath, g.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/profile", g.handleProfile).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/logout", g.handleLogout).Methods(http.MethodPost, http.MethodOptions)

	for _, prefix := range []string{"/api/movies", "/api/directors"} {
		r.PathPrefix(prefix).Handler(g.forward(movies, false))
	}
	for _, prefix := range []string{"/api/reviews", "/reviews"} {
		r.PathPrefix(prefix).Handler(g.forward(reviews, true))
	}
	if cfg.FrontendURL != "" {
		frontend, err := newProxy("frontend", cfg.FrontendURL, logger)
		if err != nil {
			return nil, err
		}
		r.PathPrefix("/").Handler(g.browser(frontend))
	}
	g.router = r
	return g, nil
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		g.logger.Error("generate oauth state", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, g.oauth.AuthCodeURL(state), http.StatusFound)
}

func (g *Gateway) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || q.Get("state") != c.Value {
		writeMessage(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1, HttpOnly: true, Secure: g.secure})

	code := q.Get("code")
	if code == "" {
		g.logger.Warn("authorization failed", "error", q.Get("error"), "description", q.Get("error_description"))
		writeMessage(w, http.StatusBadRequest, "Authorization failed")
		return
	}

	token, err := g.oauth.Exchange(r.Context(), code)
	if err != nil {
		g.logger.Error("token exchange failed", "err", err)
		writeMessage(w, http.StatusBadGateway, "Token exchange failed")
		return
	}
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		writeMessage(w, http.StatusBadGateway, "Token exchange returned no ID token")
		return
	}
	id, err := g.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		g.logger.Warn("id token rejected", "err", err)
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	if err := g.sessions.SetCookie(w, auth.Session{Identity: id, IDToken: rawIDToken}); err != nil {
		g.logger.Error("issue session", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	g.logger.Info("user signed in", "sub", id.Subject, "email", id.Email)
	http.Redirect(w, r, g.successURL, http.StatusFound)
}

func (g *Gateway) handleProfile(w http.ResponseWriter, r *http.Request) {
	s, err := g.sessions.FromRequest(r)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    s.Name,
		"email":   s.Email,
		"picture": s.Picture,
	})
}

func (g *Gateway) handleLogout(w http.ResponseWriter, _ *http.Request) {
	g.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// forward proxies to an upstream API, attaching the session's ID token as a
// bearer token. Without a session only preflights pass, plus GETs when publicReads is set.
func (g *Gateway) forward(upstream http.Handler, publicReads bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := g.sessions.FromRequest(r)
		if err == nil {
			r.Header.Set("Authorization", "Bearer "+s.IDToken)
			upstream.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodOptions || (publicReads && r.Method == http.MethodGet) {
			upstream.ServeHTTP(w, r)
			return
		}
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	})
}

// browser sends signed-out visitors to the login flow.
func (g *Gateway) browser(upstream http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := g.sessions.FromRequest(r); err != nil && r.Method != http.MethodOptions {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		upstream.ServeHTTP(w, r)
	})
}

func (g *Gateway) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			}
			h.Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newProxy(name, rawURL string, logger *log.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid %s upstream url %q", name, rawURL)
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			// the gateway owns CORS
			resp.Header.Del("Access-Control-Allow-Origin")
			resp.Header.Del("Access-Control-Allow-Credentials")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("upstream request failed", "upstream", name, "path", r.URL.Path, "err", err)
			writeMessage(w, http.StatusBadGateway, "Upstream unavailable")
		},
	}, nil
}

func generateState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
