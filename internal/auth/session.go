package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the gateway session cookie.
const SessionCookie = "movie_session"

const sessionIssuer = "movie-gateway"

// Session is what the gateway remembers about a signed-in user.
type Session struct {
	Identity
	IDToken string
}

type sessionClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	IDToken string `json:"id_token"`
	jwt.RegisteredClaims
}

// SessionManager signs and validates session cookies as HS256 JWTs.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager returns a manager; secret must be at least 32 bytes.
func NewSessionManager(secret string, ttl time.Duration, secure bool) (*SessionManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}, nil
}

// Issue signs a session for s.
func (m *SessionManager) Issue(s Session) (string, error) {
	now := m.now()
	claims := sessionClaims{
		Email:   s.Email,
		Name:    s.Name,
		Picture: s.Picture,
		IDToken: s.IDToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Subject,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse validates a signed session.
func (m *SessionManager) Parse(raw string) (Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Session{
		Identity: Identity{
			Subject: claims.Subject,
			Email:   claims.Email,
			Name:    claims.Name,
			Picture: claims.Picture,
		},
		IDToken: claims.IDToken,
	}, nil
}

// FromRequest reads and validates the session cookie.
func (m *SessionManager) FromRequest(r *http.Request) (Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return Session{}, ErrNoToken
	}
	return m.Parse(c.Value)
}

// SetCookie writes a signed session cookie.
func (m *SessionManager) SetCookie(w http.ResponseWriter, s Session) error {
	signed, err := m.Issue(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie expires the session cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
