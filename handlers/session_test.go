// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/civic-sync/models"
)

func TestCreateSession(t *testing.T) {
	conn := setupTestDB(t)
	cfg := getTestConfig()
	handler := NewSessionHandler(conn, cfg)

	create := func(username string) (*httptest.ResponseRecorder, models.CreateSessionResponse) {
		t.Helper()

		body, err := json.Marshal(models.CreateSessionRequest{Username: username})
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		r := httptest.NewRequest("POST", "/auth/session", bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		handler.Create(w, r)

		var resp models.CreateSessionResponse
		if w.Code == http.StatusOK {
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
		}
		return w, resp
	}

	w, first := create("alice")
	if w.Code != http.StatusOK {
		t.Fatalf("Create returned %d: %s", w.Code, w.Body.String())
	}
	if first.Token == "" || first.UserID == "" {
		t.Fatalf("incomplete session response: %+v", first)
	}

	// Same username resolves to the same user.
	w, second := create("alice")
	if w.Code != http.StatusOK {
		t.Fatalf("repeat Create returned %d: %s", w.Code, w.Body.String())
	}
	if second.UserID != first.UserID {
		t.Errorf("user id changed across logins: %q vs %q", first.UserID, second.UserID)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM app_user`).Scan(&count); err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	if count != 1 {
		t.Errorf("user rows = %d, want 1", count)
	}

	// Length validation.
	for _, username := range []string{"a", string(bytes.Repeat([]byte("x"), 51))} {
		if w, _ := create(username); w.Code != http.StatusBadRequest {
			t.Errorf("username %q: status %d, want 400", username, w.Code)
		}
	}
}

func TestMe(t *testing.T) {
	conn := setupTestDB(t)
	cfg := getTestConfig()
	handler := NewSessionHandler(conn, cfg)

	userID := seedUser(t, conn, "alice")

	r := httptest.NewRequest("GET", "/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+sessionFor(cfg, userID))

	w := httptest.NewRecorder()
	handler.Me(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("Me returned %d: %s", w.Code, w.Body.String())
	}

	var user models.User
	if err := json.NewDecoder(w.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if user.ID != userID || user.Username != "alice" {
		t.Errorf("unexpected user: %+v", user)
	}

	// No token means no session.
	w = httptest.NewRecorder()
	handler.Me(w, httptest.NewRequest("GET", "/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous Me returned %d, want 401", w.Code)
	}

	// A token signed with a different secret is rejected, not an error.
	wrongCfg := cfg
	wrongCfg.SessionSecret = "some-other-secret"
	r = httptest.NewRequest("GET", "/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+sessionFor(wrongCfg, userID))
	w = httptest.NewRecorder()
	handler.Me(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("forged token Me returned %d, want 401", w.Code)
	}
}
