// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package hub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"fanhub/internal/app"
	"fanhub/internal/backend"
	"fanhub/internal/backend/backendtest"
	"fanhub/internal/session"
	"fanhub/internal/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testEmail    = "admin@example.com"
	testPassword = "correct-horse"
)

type fixture struct {
	hub      *Hub
	sessions *session.MemoryStore
	ctx      context.Context

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	dir := backendtest.NewDirectory()
	dir.Add(testEmail, testPassword)
	svc := backend.NewService(dir, backendtest.NewDocumentStore(), backend.NewLocalBus())
	if err := svc.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}

	if opts.AppID == "" {
		opts.AppID = "test-app"
	}
	f := &fixture{
		sessions: session.NewMemoryStore(false, time.Hour),
		ctx:      ctx,
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.hub = New(svc, f.sessions, opts)
	f.hub.now = f.clock
	f.hub.Start(ctx)

	t.Cleanup(func() {
		cancel()
		<-f.hub.Done()
		<-svc.Done()
	})
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// resolve runs Resolve for a request carrying cookie (nil for a new
// visitor) and returns the visitor and the session cookie in effect.
func (f *fixture) resolve(t *testing.T, cookie *http.Cookie) (*Visitor, *http.Cookie) {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	v, err := f.hub.Resolve(w, r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie after Resolve")
	}
	return v, cookie
}

func (f *fixture) sessionData(t *testing.T, cookie *http.Cookie) *session.Data {
	t.Helper()
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(cookie)
	_, data, err := f.sessions.Get(context.Background(), r)
	if err != nil {
		t.Fatalf("session Get: %v", err)
	}
	return data
}

func waitFor(t *testing.T, a *app.App, desc string, pred func(view.State) bool) view.State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := a.State()
		if pred(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last state: %+v", desc, s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func isPublic(s view.State) bool { return s.Mode == view.ModePublic && s.Session != nil }
func isAdmin(s view.State) bool  { return s.Mode == view.ModeAdmin }

func TestResolveCreatesSessionAndApp(t *testing.T) {
	f := newFixture(t, Options{})

	v, cookie := f.resolve(t, nil)
	if v.ID != cookie.Value {
		t.Errorf("visitor id %q does not match cookie %q", v.ID, cookie.Value)
	}
	s := waitFor(t, v.App, "public mode", isPublic)

	// The anonymous identity is written back to the session.
	deadline := time.Now().Add(2 * time.Second)
	for f.sessionData(t, cookie).UserID != s.Session.UserID {
		if time.Now().After(deadline) {
			t.Fatalf("session never recorded anonymous user %q", s.Session.UserID)
		}
		time.Sleep(5 * time.Millisecond)
	}

	again, _ := f.resolve(t, cookie)
	if again != v {
		t.Error("expected the same visitor for the same session cookie")
	}
	if n := f.hub.Len(); n != 1 {
		t.Errorf("Len: got %d, want 1", n)
	}
}

func TestVisitorsAreIsolated(t *testing.T) {
	f := newFixture(t, Options{})

	a, _ := f.resolve(t, nil)
	b, _ := f.resolve(t, nil)
	if a == b || a.ID == b.ID {
		t.Fatal("expected distinct visitors without cookies")
	}

	waitFor(t, a.App, "public mode", isPublic)
	waitFor(t, b.App, "public mode", isPublic)
	if res := a.App.Login(f.ctx, testEmail, testPassword); res.Toast == nil || res.Toast.Message != app.MsgLoginOK {
		t.Fatalf("login: %+v", res.Toast)
	}
	waitFor(t, a.App, "admin mode", isAdmin)

	if b.App.State().Mode != view.ModePublic {
		t.Errorf("other visitor changed mode: %v", b.App.State().Mode)
	}
}

func TestAdminSurvivesEviction(t *testing.T) {
	f := newFixture(t, Options{IdleTTL: time.Minute})

	v, cookie := f.resolve(t, nil)
	waitFor(t, v.App, "public mode", isPublic)
	if res := v.App.Login(f.ctx, testEmail, testPassword); res.Toast == nil || res.Toast.Message != app.MsgLoginOK {
		t.Fatalf("login: %+v", res.Toast)
	}
	admin := waitFor(t, v.App, "admin mode", isAdmin)

	f.advance(2 * time.Minute)
	if n := f.hub.sweep(); n != 1 {
		t.Fatalf("sweep evicted %d visitors, want 1", n)
	}
	select {
	case <-v.App.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("evicted app did not stop")
	}

	restored, _ := f.resolve(t, cookie)
	if restored == v {
		t.Fatal("expected a fresh visitor after eviction")
	}
	s := waitFor(t, restored.App, "admin mode", isAdmin)
	if s.Session.UserID != admin.Session.UserID {
		t.Errorf("restored user: got %q, want %q", s.Session.UserID, admin.Session.UserID)
	}
}

func TestSweepSkipsRecentAndHeldVisitors(t *testing.T) {
	f := newFixture(t, Options{IdleTTL: time.Minute})

	held, _ := f.resolve(t, nil)
	release := f.hub.Hold(held)
	f.advance(30 * time.Second)
	recent, _ := f.resolve(t, nil)

	f.advance(45 * time.Second)
	if n := f.hub.sweep(); n != 0 {
		t.Fatalf("sweep evicted %d visitors, want 0", n)
	}

	release()
	release() // second call is a no-op
	f.advance(2 * time.Minute)
	if n := f.hub.sweep(); n != 2 {
		t.Fatalf("sweep evicted %d visitors, want 2", n)
	}
	<-held.App.Done()
	<-recent.App.Done()
}

func TestZeroIdleTTLNeverEvicts(t *testing.T) {
	f := newFixture(t, Options{})

	f.resolve(t, nil)
	f.advance(1000 * time.Hour)
	if n := f.hub.sweep(); n != 0 {
		t.Errorf("sweep evicted %d visitors with eviction disabled", n)
	}
}

func TestResolveAfterStop(t *testing.T) {
	dir := backendtest.NewDirectory()
	svc := backend.NewService(dir, backendtest.NewDocumentStore(), backend.NewLocalBus())
	h := New(svc, session.NewMemoryStore(false, time.Hour), Options{AppID: "test-app"})

	w := httptest.NewRecorder()
	if _, err := h.Resolve(w, httptest.NewRequest("GET", "/", nil)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("before Start: got %v, want ErrNotStarted", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	cancel()
	<-h.Done()

	if _, err := h.Resolve(w, httptest.NewRequest("GET", "/", nil)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("after stop: got %v, want ErrNotStarted", err)
	}
}
