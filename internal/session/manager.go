// Package session owns the process-wide authentication state: who is
// logged in, the token proving it, and the persisted copy of both.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"showpass/internal/api"
	"showpass/internal/models"
	"showpass/internal/store"
)

// LoginClient is the one backend operation the manager needs.
type LoginClient interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
}

// Manager is the single authority on the current session. One Manager
// exists per running app. Invariant: a principal is held iff a token is
// held.
type Manager struct {
	mu        sync.RWMutex
	creds     store.Store
	login     LoginClient
	token     string
	principal *models.Principal
	restoring bool
}

// NewManager creates a manager over the given credential store. The
// session starts in the restoring state; call Restore once at startup.
// SetLoginClient must be called before SignIn (the API client and the
// manager reference each other, so wiring happens in two steps).
func NewManager(creds store.Store) *Manager {
	return &Manager{creds: creds, restoring: true}
}

// SetLoginClient wires the backend login operation.
func (m *Manager) SetLoginClient(lc LoginClient) {
	m.login = lc
}

// Token returns the current session token, or "" when anonymous.
// Implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Principal returns the current identity, or nil when anonymous.
func (m *Manager) Principal() *models.Principal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.principal
}

// Restoring reports whether the persisted session has not been read
// yet. Consumers must hold authenticated actions until this is false.
func (m *Manager) Restoring() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restoring
}

// Restore loads the persisted session, if any. Any read or parse
// problem is swallowed and leaves the session anonymous; restore never
// fails the caller.
func (m *Manager) Restore(ctx context.Context) {
	token, raw, err := m.creds.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoring = false

	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[Session] Restore failed, starting anonymous: %v", err)
		}
		return
	}

	var principal models.Principal
	if err := json.Unmarshal(raw, &principal); err != nil || principal.ID == "" {
		log.Printf("[Session] Stored principal unreadable, starting anonymous")
		return
	}
	if tokenExpired(token) {
		log.Printf("[Session] Stored token expired, starting anonymous")
		return
	}

	m.token = token
	m.principal = &principal
}

// SignIn authenticates against the backend. On success the session is
// populated and persisted; on any failure the session is untouched and
// the returned message describes why.
func (m *Manager) SignIn(ctx context.Context, creds models.LoginRequest) (bool, string) {
	resp, err := m.login.Login(ctx, creds)
	if err != nil {
		var serr *api.ServerError
		if errors.As(err, &serr) {
			return false, serr.Error()
		}
		var derr *api.DecodeError
		if errors.As(err, &derr) {
			return false, "Login failed: unexpected server response"
		}
		log.Printf("[Session] Login transport error: %v", err)
		return false, "Network error"
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Login failed"
		}
		return false, msg
	}

	principal := resp.Admin
	if principal == nil {
		principal = resp.User
	}
	if resp.Token == "" || principal == nil {
		return false, "Login failed: unexpected server response"
	}
	principal.Role = models.RoleAdmin

	raw, err := json.Marshal(principal)
	if err != nil {
		return false, "Login failed"
	}
	if err := m.creds.Save(ctx, resp.Token, raw); err != nil {
		log.Printf("[Session] Persisting credentials failed: %v", err)
		return false, "Could not save session"
	}

	m.mu.Lock()
	m.token = resp.Token
	m.principal = principal
	m.mu.Unlock()

	return true, "Login successful"
}

// SignOut clears the session and its persisted copy. Always succeeds
// locally and is idempotent; no server round-trip.
func (m *Manager) SignOut(ctx context.Context) {
	if err := m.creds.Clear(ctx); err != nil {
		log.Printf("[Session] Clearing stored credentials failed: %v", err)
	}
	m.mu.Lock()
	m.token = ""
	m.principal = nil
	m.mu.Unlock()
}

// tokenExpired checks the exp claim of a stored JWT without verifying
// its signature (the server verifies; this only avoids restoring a
// session the server will reject anyway). Opaque tokens pass through.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
