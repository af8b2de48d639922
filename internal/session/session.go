// Package session provides HTTP visitor sessions. A session is identified
// by a secure cookie and carries the backend identity the visitor is signed
// in as, so a visitor keeps their admin sign-in across page loads and
// server restarts. Sessions live in Valkey when it is configured and in
// process memory otherwise.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"slices"
	"time"

	"fanhub/internal/backend"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "fh_session"

	// DefaultTTL is how long an idle session lives before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the session payload. An empty UserID means the visitor has no
// backend identity yet.
type Data struct {
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Providers []string  `json:"providers,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromUser captures a backend identity. A nil user yields an empty payload.
func FromUser(u *backend.User) *Data {
	if u == nil {
		return &Data{}
	}
	return &Data{UserID: u.UID, Email: u.Email, Providers: slices.Clone(u.Providers)}
}

// User restores the backend identity, or nil when there is none.
func (d *Data) User() *backend.User {
	if d == nil || d.UserID == "" {
		return nil
	}
	return &backend.User{UID: d.UserID, Email: d.Email, Providers: slices.Clone(d.Providers)}
}

// Store manages the session lifecycle.
type Store interface {
	// Create stores a new session and sets the session cookie on the
	// response. Returns the session ID.
	Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error)
	// Get returns the session named by the request cookie, or nil if no
	// valid session exists.
	Get(ctx context.Context, r *http.Request) (id string, data *Data, err error)
	// Save replaces the payload of an existing session and resets its TTL.
	Save(ctx context.Context, id string, data *Data) error
	// Destroy removes the request's session and clears the cookie.
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// cookieJar sets and clears the session cookie.
type cookieJar struct {
	secure bool
	ttl    time.Duration
}

func (c cookieJar) set(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.ttl.Seconds()),
	})
}

func (c cookieJar) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		MaxAge:   -1,
	})
}

// requestID returns the session ID carried by the request cookie.
func requestID(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
