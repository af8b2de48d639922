// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// ContentSecurityPolicy allows the page's own scripts plus the Tailwind and
// Datastar CDN bundles. Datastar compiles expressions at runtime, hence
// 'unsafe-eval'. Post images may come from any https host.
const ContentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-eval' https://cdn.tailwindcss.com https://cdn.jsdelivr.net; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' https: data:; " +
	"connect-src 'self'; " +
	"frame-ancestors 'self'"

// StrictTransportSecurity is sent only when the site is served over HTTPS.
const StrictTransportSecurity = "max-age=31536000; includeSubDomains"

var baseHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "SAMEORIGIN"},
	// The legacy XSS filter is off; the CSP replaces it.
	{"X-XSS-Protection", "0"},
	{"Content-Security-Policy", ContentSecurityPolicy},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

// SecureHeaders adds security-related HTTP headers to every response. With
// https set it also pins the browser to HTTPS.
func SecureHeaders(https bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range baseHeaders {
				h.Set(kv[0], kv[1])
			}
			if https {
				h.Set("Strict-Transport-Security", StrictTransportSecurity)
			}
			next.ServeHTTP(w, r)
		})
	}
}
