// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// RequireSameOrigin rejects state-changing requests whose Origin (or,
// failing that, Referer) does not match one of the allowed origins.
// Safe methods pass through untouched. An empty allow list accepts any
// origin header as long as one is present.
func RequireSameOrigin(allowed []string, next http.HandlerFunc) http.HandlerFunc {
	allowSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowSet[strings.TrimRight(a, "/")] = true
	}

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			if ref := r.Header.Get("Referer"); ref != "" {
				if u, err := url.Parse(ref); err == nil {
					origin = u.Scheme + "://" + u.Host
				}
			}
		}

		if origin == "" {
			ErrorResponse(w, http.StatusForbidden, "Origin or Referer header required")
			return
		}
		if len(allowSet) > 0 && !allowSet[strings.TrimRight(origin, "/")] {
			ErrorResponse(w, http.StatusForbidden, "Cross-origin request rejected")
			return
		}

		next(w, r)
	}
}
