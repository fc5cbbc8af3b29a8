// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package replay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/civic-sync/cache"
	"github.com/danielhkuo/civic-sync/models"
	"github.com/danielhkuo/civic-sync/remote"
)

// fakeService records every apply in order and can fail or conflict on
// chosen entity IDs.
type fakeService struct {
	mu        sync.Mutex
	pingErr   error
	failIDs   map[string]bool
	conflicts map[string]bool
	applied   []string // entity or dedup IDs in apply order
}

func newFakeReplayService() *fakeService {
	return &fakeService{
		failIDs:   make(map[string]bool),
		conflicts: make(map[string]bool),
	}
}

func (f *fakeService) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeService) SubmitVote(ctx context.Context, ref models.EntityRef, voteType string) (models.VoteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[ref.ID] {
		return models.VoteResponse{}, errors.New("service unavailable")
	}
	f.applied = append(f.applied, ref.ID)
	return models.VoteResponse{Likes: 1, UserVote: voteType, Operation: models.OpCreated}, nil
}

func (f *fakeService) SubmitSuggestion(ctx context.Context, req models.SubmitSuggestionRequest) (models.SubmitSuggestionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts[req.DedupKey] {
		return models.SubmitSuggestionResponse{}, &remote.StatusError{Code: http.StatusConflict, Message: "duplicate"}
	}
	f.applied = append(f.applied, req.DedupKey)
	return models.SubmitSuggestionResponse{SuggestionID: "s1"}, nil
}

func (f *fakeService) SubmitOpinion(ctx context.Context, req models.SubmitOpinionRequest) (models.SubmitOpinionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, req.DedupKey)
	return models.SubmitOpinionResponse{OpinionID: "o1"}, nil
}

func (f *fakeService) appliedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.applied...)
}

func testCache(t *testing.T) *cache.Manager {
	t.Helper()

	m, err := cache.New(cache.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func enqueueVote(t *testing.T, m *cache.Manager, entityID string) {
	t.Helper()

	a, err := models.NewVoteAction(models.EntityRef{Kind: models.KindAgenda, ID: entityID}, models.VoteLike)
	if err != nil {
		t.Fatalf("failed to build action: %v", err)
	}
	if err := m.EnqueueOfflineAction(a); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
}

func queuedEntityIDs(t *testing.T, m *cache.Manager) []string {
	t.Helper()

	var ids []string
	for _, a := range m.OfflineActions() {
		var p models.VotePayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			t.Fatalf("failed to decode queued payload: %v", err)
		}
		ids = append(ids, p.Entity.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReplayStopsAtFirstFailure(t *testing.T) {
	m := testCache(t)
	svc := newFakeReplayService()
	c := New(m, svc, 0)

	for _, id := range []string{"A", "B", "C"} {
		enqueueVote(t, m, id)
	}
	svc.failIDs["B"] = true

	c.Replay(context.Background())

	if got := svc.appliedIDs(); !equalIDs(got, []string{"A"}) {
		t.Errorf("applied = %v, want [A]", got)
	}
	if got := queuedEntityIDs(t, m); !equalIDs(got, []string{"B", "C"}) {
		t.Errorf("remaining queue = %v, want [B C]", got)
	}

	// Once B succeeds the rest drains in order, and A is not applied again.
	svc.failIDs["B"] = false
	c.Replay(context.Background())

	if got := svc.appliedIDs(); !equalIDs(got, []string{"A", "B", "C"}) {
		t.Errorf("applied after retry = %v, want [A B C]", got)
	}
	if depth := m.PendingActions(); depth != 0 {
		t.Errorf("queue depth = %d, want 0", depth)
	}
}

func TestReplayTreatsConflictAsApplied(t *testing.T) {
	m := testCache(t)
	svc := newFakeReplayService()
	c := New(m, svc, 0)

	a, err := models.NewSuggestionAction(models.SubmitSuggestionRequest{
		AgendaID: "ag1",
		Title:    "Bike lanes",
		Body:     "More of them",
	})
	if err != nil {
		t.Fatalf("failed to build action: %v", err)
	}
	if err := m.EnqueueOfflineAction(a); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	enqueueVote(t, m, "after-conflict")

	// The suggestion's dedup key is the action ID; a previous interrupted
	// pass already applied it.
	svc.conflicts[a.ID] = true

	c.Replay(context.Background())

	if depth := m.PendingActions(); depth != 0 {
		t.Errorf("queue depth = %d, want 0 (conflict must be acked)", depth)
	}
	if got := svc.appliedIDs(); !equalIDs(got, []string{"after-conflict"}) {
		t.Errorf("applied = %v, want [after-conflict]", got)
	}
}

func TestReplayDropsUndecodableAction(t *testing.T) {
	m := testCache(t)
	svc := newFakeReplayService()
	c := New(m, svc, 0)

	bad := models.OfflineAction{
		ID:          "bad-1",
		Kind:        models.ActionVote,
		Payload:     json.RawMessage(`[1,2]`),
		SubmittedAt: time.Now().UTC(),
	}
	if err := m.EnqueueOfflineAction(bad); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
	enqueueVote(t, m, "good")

	c.Replay(context.Background())

	if depth := m.PendingActions(); depth != 0 {
		t.Errorf("queue depth = %d, want 0 (bad action dropped, good applied)", depth)
	}
	if got := svc.appliedIDs(); !equalIDs(got, []string{"good"}) {
		t.Errorf("applied = %v, want [good]", got)
	}
}

func TestReplayDropsUnknownKind(t *testing.T) {
	m := testCache(t)
	svc := newFakeReplayService()
	c := New(m, svc, 0)

	unknown := models.OfflineAction{
		ID:          "u1",
		Kind:        "poke",
		Payload:     json.RawMessage(`{}`),
		SubmittedAt: time.Now().UTC(),
	}
	if err := m.EnqueueOfflineAction(unknown); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	c.Replay(context.Background())

	if depth := m.PendingActions(); depth != 0 {
		t.Errorf("queue depth = %d, want 0", depth)
	}
}

func TestCheckTracksConnectivity(t *testing.T) {
	m := testCache(t)
	svc := newFakeReplayService()
	c := New(m, svc, 0)

	svc.pingErr = errors.New("no route to host")
	c.check(context.Background())
	if c.Online() {
		t.Error("coordinator online while ping fails")
	}

	svc.mu.Lock()
	svc.pingErr = nil
	svc.mu.Unlock()

	enqueueVote(t, m, "queued-offline")

	c.check(context.Background())
	if !c.Online() {
		t.Error("coordinator offline after successful ping")
	}
	// Reconnect drains the pending queue.
	if got := svc.appliedIDs(); !equalIDs(got, []string{"queued-offline"}) {
		t.Errorf("applied = %v, want [queued-offline]", got)
	}
}

func TestNotifyOnlineTriggersProbe(t *testing.T) {
	m := testCache(t)
	svc := newFakeReplayService()
	c := New(m, svc, time.Hour) // ticker effectively disabled

	svc.pingErr = errors.New("down")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for c.Online() {
		select {
		case <-deadline:
			t.Fatal("initial probe never ran")
		case <-time.After(time.Millisecond):
		}
	}

	svc.mu.Lock()
	svc.pingErr = nil
	svc.mu.Unlock()
	c.NotifyOnline()

	deadline = time.After(2 * time.Second)
	for !c.Online() {
		select {
		case <-deadline:
			t.Fatal("NotifyOnline did not trigger a probe")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
}
