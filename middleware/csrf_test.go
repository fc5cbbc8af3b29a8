// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireSameOrigin(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}

	tests := []struct {
		name           string
		allowed        []string
		method         string
		origin         string
		referer        string
		expectedStatus int
	}{
		{
			name:           "GET passes without origin",
			allowed:        []string{"https://app.example.com"},
			method:         "GET",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "POST with allowed origin",
			allowed:        []string{"https://app.example.com"},
			method:         "POST",
			origin:         "https://app.example.com",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "POST with disallowed origin",
			allowed:        []string{"https://app.example.com"},
			method:         "POST",
			origin:         "https://evil.example.com",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "POST without origin or referer",
			allowed:        []string{"https://app.example.com"},
			method:         "POST",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "referer fallback",
			allowed:        []string{"https://app.example.com"},
			method:         "POST",
			referer:        "https://app.example.com/agendas/42",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "trailing slash in allow list normalized",
			allowed:        []string{"https://app.example.com/"},
			method:         "POST",
			origin:         "https://app.example.com",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "empty allow list accepts any present origin",
			method:         "POST",
			origin:         "https://anything.example.com",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "empty allow list still requires an origin",
			method:         "POST",
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireSameOrigin(tt.allowed, ok)

			req := httptest.NewRequest(tt.method, "/suggestions", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}

			w := httptest.NewRecorder()
			handler(w, req)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}
