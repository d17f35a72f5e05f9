package session_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"showpass/internal/api"
	"showpass/internal/api/apitest"
	"showpass/internal/models"
	"showpass/internal/session"
	"showpass/internal/store"
)

func newManager(t *testing.T, srv *apitest.Server) (*session.Manager, store.Store) {
	t.Helper()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	m := session.NewManager(st)
	client := api.NewClient(srv.URL(), m)
	m.SetLoginClient(client)
	return m, st
}

func TestSignInSuccess(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.AdminID = "u1"

	m, st := newManager(t, srv)
	m.Restore(context.Background())

	ok, msg := m.SignIn(context.Background(), models.LoginRequest{Email: "a@b.com", Password: "secret"})
	if !ok {
		t.Fatalf("SignIn() failed: %s", msg)
	}
	if m.Token() != "T1" {
		t.Fatalf("token = %q, want T1", m.Token())
	}
	p := m.Principal()
	if p == nil || p.ID != "u1" || p.Name != "Ann" || p.Role != models.RoleAdmin {
		t.Fatalf("unexpected principal: %+v", p)
	}

	// Credentials must be persisted
	token, raw, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("credentials not persisted: %v", err)
	}
	if token != "T1" {
		t.Fatalf("persisted token = %q, want T1", token)
	}
	var stored models.Principal
	if err := json.Unmarshal(raw, &stored); err != nil || stored.ID != "u1" {
		t.Fatalf("persisted principal unreadable: %q", raw)
	}
}

func TestSignInFailureLeavesSessionAnonymous(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	m, st := newManager(t, srv)
	m.Restore(context.Background())

	ok, msg := m.SignIn(context.Background(), models.LoginRequest{Email: "a@b.com", Password: "wrong"})
	if ok {
		t.Fatal("SignIn() with bad password should fail")
	}
	if msg != "Invalid email or password" {
		t.Fatalf("message = %q, want server wording", msg)
	}
	if m.Token() != "" || m.Principal() != nil {
		t.Fatal("failed sign-in must not touch the session")
	}
	if _, _, err := st.Load(context.Background()); err == nil {
		t.Fatal("failed sign-in must not persist credentials")
	}
}

func TestSignInTransportFailure(t *testing.T) {
	srv := apitest.New()
	m, _ := newManager(t, srv)
	srv.Close()
	m.Restore(context.Background())

	ok, msg := m.SignIn(context.Background(), models.LoginRequest{Email: "a@b.com", Password: "secret"})
	if ok {
		t.Fatal("SignIn() against dead server should fail")
	}
	if msg != "Network error" {
		t.Fatalf("message = %q, want %q", msg, "Network error")
	}
	if m.Token() != "" {
		t.Fatal("session must stay anonymous")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	m, st := newManager(t, srv)
	m.Restore(context.Background())
	if ok, msg := m.SignIn(context.Background(), models.LoginRequest{Email: "a@b.com", Password: "secret"}); !ok {
		t.Fatalf("SignIn() failed: %s", msg)
	}

	// A fresh manager over the same store must reproduce the session
	fresh := session.NewManager(st)
	if !fresh.Restoring() {
		t.Fatal("new manager should start in the restoring state")
	}
	fresh.Restore(context.Background())
	if fresh.Restoring() {
		t.Fatal("Restore() must clear the restoring flag")
	}
	if fresh.Token() != m.Token() {
		t.Fatalf("restored token = %q, want %q", fresh.Token(), m.Token())
	}
	p, q := fresh.Principal(), m.Principal()
	if p == nil || p.ID != q.ID || p.Name != q.Name || p.Role != q.Role {
		t.Fatalf("restored principal %+v, want %+v", p, q)
	}
}

func TestRestoreSwallowsCorruptState(t *testing.T) {
	st := store.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := st.Save(context.Background(), "T1", []byte("not json")); err != nil {
		t.Fatal(err)
	}
	m := session.NewManager(st)
	m.Restore(context.Background())
	if m.Restoring() {
		t.Fatal("Restore() must complete even on bad state")
	}
	if m.Token() != "" || m.Principal() != nil {
		t.Fatal("corrupt state must restore as anonymous")
	}
}

func TestRestoreDiscardsExpiredToken(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	token, err := expired.SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}

	st := store.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := st.Save(context.Background(), token, []byte(`{"_id":"u1","name":"Ann","role":"admin"}`)); err != nil {
		t.Fatal(err)
	}

	m := session.NewManager(st)
	m.Restore(context.Background())
	if m.Token() != "" || m.Principal() != nil {
		t.Fatal("expired token must restore as anonymous")
	}
}

func TestSignOutIdempotent(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	m, st := newManager(t, srv)
	m.Restore(context.Background())
	if ok, msg := m.SignIn(context.Background(), models.LoginRequest{Email: "a@b.com", Password: "secret"}); !ok {
		t.Fatalf("SignIn() failed: %s", msg)
	}

	m.SignOut(context.Background())
	if m.Token() != "" || m.Principal() != nil {
		t.Fatal("SignOut() must empty the session")
	}
	if _, _, err := st.Load(context.Background()); err == nil {
		t.Fatal("SignOut() must clear persisted credentials")
	}

	// Second sign-out ends in the same state
	m.SignOut(context.Background())
	if m.Token() != "" || m.Principal() != nil {
		t.Fatal("repeated SignOut() must be a no-op")
	}
}
