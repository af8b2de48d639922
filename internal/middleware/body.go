// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// DefaultMaxBody caps form submissions. A post body is plain Markdown, so
// this is far above anything the admin form legitimately sends.
const DefaultMaxBody = 256 << 10

// LimitBody caps request bodies at n bytes. Reads past the limit fail, so
// form parsing downstream (including the CSRF check) rejects oversized
// submissions.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
