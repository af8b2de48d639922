// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure: a full in-process
// stack (backend service, session store, hub) behind the same middleware
// the router installs.
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"fanhub/internal/backend"
	"fanhub/internal/backend/backendtest"
	"fanhub/internal/hub"
	"fanhub/internal/middleware"
	"fanhub/internal/render"
	"fanhub/internal/session"
	"fanhub/internal/view"
)

const (
	testAppID    = "test-app"
	testEmail    = "admin@example.com"
	testPassword = "correct-horse"
)

type testEnv struct {
	svc       *backend.Service
	hub       *hub.Hub
	site      *Site
	handler   http.Handler
	published atomic.Int32
	ctx       context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	dir := backendtest.NewDirectory()
	dir.Add(testEmail, testPassword)
	svc := backend.NewService(dir, backendtest.NewDocumentStore(), backend.NewLocalBus())
	if err := svc.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}

	h := hub.New(svc, session.NewMemoryStore(false, time.Hour), hub.Options{AppID: testAppID})
	h.Start(ctx)

	rn, err := render.New(render.Options{SiteName: "TEST SITE", Location: time.UTC})
	if err != nil {
		cancel()
		t.Fatalf("render.New: %v", err)
	}

	env := &testEnv{svc: svc, hub: h, ctx: ctx}
	site := NewSite(rn, h, func(context.Context) { env.published.Add(1) })
	env.site = site

	r := chi.NewRouter()
	r.Use(middleware.NewCSRF(false))
	r.Use(middleware.LoadVisitor(h))
	r.Get("/", site.Page)
	r.Get("/stream", site.Stream)
	r.Post("/login/toggle", site.ToggleLogin)
	r.Post("/login", site.Login)
	r.Post("/logout", site.Logout)
	r.Post("/publish", site.Publish)
	env.handler = r

	t.Cleanup(func() {
		cancel()
		<-h.Done()
		<-svc.Done()
	})
	return env
}

// browser carries cookies between requests like a real client.
type browser struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, env: e, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	b.env.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rr
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// post submits a form the way the Datastar client does when datastar is
// set, or as a plain HTML form otherwise. The CSRF field is added.
func (b *browser) post(path string, form url.Values, datastar bool) *httptest.ResponseRecorder {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if c, ok := b.cookies[middleware.CSRFCookieName]; ok {
		form.Set(middleware.CSRFFormField, c.Value)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if datastar {
		req.Header.Set("Datastar-Request", "true")
	}
	return b.do(req)
}

// visitor returns the visitor bound to the browser's session.
func (b *browser) visitor() *hub.Visitor {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	v, err := b.env.hub.Resolve(httptest.NewRecorder(), req)
	if err != nil {
		b.t.Fatalf("Resolve: %v", err)
	}
	return v
}

func (b *browser) waitFor(desc string, pred func(view.State) bool) view.State {
	b.t.Helper()
	v := b.visitor()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := v.App.State()
		if pred(s) {
			return s
		}
		if time.Now().After(deadline) {
			b.t.Fatalf("timed out waiting for %s; last state: %+v", desc, s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func isPublic(s view.State) bool { return s.Mode == view.ModePublic && s.Session != nil }
func isAdmin(s view.State) bool  { return s.Mode == view.ModeAdmin }

// signIn opens the page and logs in as the admin.
func (b *browser) signIn() {
	b.t.Helper()
	b.get("/")
	b.waitFor("public mode", isPublic)
	if rr := b.post("/login", url.Values{"email": {testEmail}, "password": {testPassword}}, true); rr.Code != http.StatusOK {
		b.t.Fatalf("login: status %d", rr.Code)
	}
	b.waitFor("admin mode", isAdmin)
}
