// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d rejected under limit", i)
		}
	}
	if l.Allow("k") {
		t.Error("request over limit allowed")
	}

	// Other keys have their own buckets.
	if !l.Allow("other") {
		t.Error("independent key rejected")
	}

	// Window slides: 61s later the first three events expire.
	now = now.Add(61 * time.Second)
	if !l.Allow("k") {
		t.Error("request rejected after window slid past old events")
	}

	// Partial expiry: the event recorded just now still counts.
	now = now.Add(30 * time.Second)
	if !l.Allow("k") || !l.Allow("k") {
		t.Error("requests rejected with room in window")
	}
	if l.Allow("k") {
		t.Error("fourth event inside window allowed")
	}
}

func TestRateLimiterHandler(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	handler := l.Limit(
		func(r *http.Request) string { return r.Header.Get("X-Test-Key") },
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
	)

	do := func(key string) int {
		req := httptest.NewRequest("POST", "/entities/agenda/1/votes", nil)
		req.Header.Set("X-Test-Key", key)
		w := httptest.NewRecorder()
		handler(w, req)
		return w.Code
	}

	if code := do("a"); code != http.StatusNoContent {
		t.Errorf("first request: %d", code)
	}
	if code := do("a"); code != http.StatusTooManyRequests {
		t.Errorf("second request: %d, want 429", code)
	}
	if code := do("b"); code != http.StatusNoContent {
		t.Errorf("different key: %d", code)
	}
}
