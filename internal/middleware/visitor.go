// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"fanhub/internal/hub"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// VisitorKey is the context key for the visitor resolved for the request.
const VisitorKey contextKey = "visitor"

// VisitorResolver finds or starts the visitor owning a request.
type VisitorResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) (*hub.Visitor, error)
}

// LoadVisitor resolves the visitor from the session cookie, starting a new
// session and App on first contact, and stores it in the request context.
// Downstream handlers read it with VisitorFromCtx. Requests are refused
// with 503 when the session store is unavailable.
func LoadVisitor(res VisitorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, err := res.Resolve(w, r)
			if err != nil {
				slog.Error("resolve visitor failed", "path", r.URL.Path, "error", err)
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}

			ctx := context.WithValue(r.Context(), VisitorKey, v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VisitorFromCtx extracts the visitor from the request context. Returns nil
// outside LoadVisitor.
func VisitorFromCtx(ctx context.Context) *hub.Visitor {
	v, _ := ctx.Value(VisitorKey).(*hub.Visitor)
	return v
}
