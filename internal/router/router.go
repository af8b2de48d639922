// Package router sets up all HTTP routes and middleware chains for the fan
// hub. Visitor routes share one stack (body limit, CSRF, visitor loading);
// the health check, static assets and the cached feed sit outside it.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fanhub/internal/handlers"
	"fanhub/internal/middleware"
)

// Deps holds what the routes are served by.
type Deps struct {
	Site     *handlers.Site
	Public   *handlers.Public
	Health   http.Handler
	Visitors middleware.VisitorResolver
	// LoginLimiter, if non-nil, rate-limits POST /login.
	LoginLimiter  *middleware.RateLimiter
	Static        fs.FS
	SecureCookies bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders(d.SecureCookies))

	// Health check: no session, no CSRF.
	r.Method(http.MethodGet, "/health", d.Health)

	if d.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(d.Static))))
	}

	// Read-only cached feed; creates no visitor.
	r.Get("/feed", d.Public.Feed)

	// Live visitor page and its actions.
	r.Group(func(r chi.Router) {
		r.Use(middleware.LimitBody(middleware.DefaultMaxBody))
		r.Use(middleware.NewCSRF(d.SecureCookies))
		r.Use(middleware.LoadVisitor(d.Visitors))

		r.Get("/", d.Site.Page)
		r.Get("/stream", d.Site.Stream)
		r.Post("/login/toggle", d.Site.ToggleLogin)
		r.Post("/logout", d.Site.Logout)
		r.Post("/publish", d.Site.Publish)

		login := r.With()
		if d.LoginLimiter != nil {
			login = r.With(d.LoginLimiter.Middleware)
		}
		login.Post("/login", d.Site.Login)
	})

	return r
}
