// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the HTTP surface: the live visitor page and
// its Datastar actions, the cached public feed, and the health check.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"fanhub/internal/app"
	"fanhub/internal/hub"
	"fanhub/internal/middleware"
	"fanhub/internal/render"
	"fanhub/internal/view"
)

// KeepAliveInterval is how often an idle stream sends an empty signal
// patch so proxies do not close it.
const KeepAliveInterval = 25 * time.Second

// Holder pins a visitor while its stream is open.
type Holder interface {
	Hold(v *hub.Visitor) (release func())
}

// Site groups the handlers for the live visitor page.
type Site struct {
	renderer  *render.Renderer
	holder    Holder
	published func(ctx context.Context)
	keepAlive time.Duration
}

// NewSite creates the Site handler group. published, if non-nil, is called
// after every successful publish.
func NewSite(renderer *render.Renderer, holder Holder, published func(ctx context.Context)) *Site {
	return &Site{
		renderer:  renderer,
		holder:    holder,
		published: published,
		keepAlive: KeepAliveInterval,
	}
}

// Page renders the full document for the visitor's current state. The
// page opens the stream on load, which keeps it current from then on.
func (s *Site) Page(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	token := middleware.CSRFTokenFromCtx(r.Context())

	html, err := render.String(func(w io.Writer) error {
		return s.renderer.Page(w, v.App.State(), token)
	})
	if err != nil {
		slog.Error("render page failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, html)
}

// Stream pushes a re-render of #app and the document title for every state
// the visitor's App commits, until the browser disconnects or the App stops.
func (s *Site) Stream(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	token := middleware.CSRFTokenFromCtx(r.Context())

	release := s.holder.Hold(v)
	defer release()
	states, cancel := v.App.Subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-v.App.Done():
			return
		case <-keepAlive.C:
			if err := sse.PatchSignals([]byte(`{}`)); err != nil {
				slog.Debug("stream closed", "error", err)
				return
			}
		case st := <-states:
			if err := s.patchState(sse, st, token); err != nil {
				slog.Debug("stream closed", "error", err)
				return
			}
		}
	}
}

// patchState sends the #app element and the title for st.
func (s *Site) patchState(sse *datastar.ServerSentEventGenerator, st view.State, token string) error {
	appHTML, err := render.String(func(w io.Writer) error { return s.renderer.App(w, st, token) })
	if err != nil {
		return err
	}
	titleHTML, err := render.String(func(w io.Writer) error { return s.renderer.Title(w, st) })
	if err != nil {
		return err
	}
	if err := sse.PatchElements(appHTML,
		datastar.WithSelector("#"+render.AppID),
		datastar.WithMode(datastar.ElementPatchModeOuter),
	); err != nil {
		return err
	}
	return sse.PatchElements(titleHTML,
		datastar.WithSelector("#"+render.TitleID),
		datastar.WithMode(datastar.ElementPatchModeOuter),
	)
}

// ToggleLogin shows or hides the login form.
func (s *Site) ToggleLogin(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	s.respond(w, r, v.App.ToggleLoginForm(r.Context()))
}

// Login signs the visitor in with the submitted credentials.
func (s *Site) Login(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	res := v.App.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	s.respond(w, r, res)
}

// Logout signs the visitor out.
func (s *Site) Logout(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	s.respond(w, r, v.App.Logout(r.Context()))
}

// Publish writes a news post from the admin form.
func (s *Site) Publish(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	res := v.App.Publish(r.Context(), app.PublishInput{
		Headline: r.PostFormValue("headline"),
		Body:     r.PostFormValue("body"),
		ImageURL: r.PostFormValue("imageUrl"),
		Category: r.PostFormValue("category"),
	})
	if res.Toast != nil && res.Toast.Kind == view.ToastSuccess && s.published != nil {
		s.published(context.WithoutCancel(r.Context()))
	}
	s.respond(w, r, res)
}

// respond answers an action. Datastar requests get the toast appended to
// the message box; the state itself reaches the page through the stream,
// which delivers states in commit order. Plain form posts are redirected
// back to the page.
func (s *Site) respond(w http.ResponseWriter, r *http.Request, res app.Result) {
	if !isDatastar(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	sse := datastar.NewSSE(w, r)
	if res.Toast == nil {
		return
	}
	html, err := render.String(func(w io.Writer) error { return s.renderer.Toast(w, *res.Toast) })
	if err != nil {
		slog.Error("render toast failed", "error", err)
		return
	}
	if err := sse.PatchElements(html,
		datastar.WithSelector("#"+render.MessageBoxID),
		datastar.WithMode(datastar.ElementPatchModeAppend),
	); err != nil {
		slog.Debug("toast not delivered", "error", err)
	}
}

// isDatastar reports whether r was issued by the Datastar client.
func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}
