// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votesync

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/civic-sync/handlers"
	"github.com/danielhkuo/civic-sync/models"
	"github.com/danielhkuo/civic-sync/remote"
	"github.com/danielhkuo/civic-sync/replay"
	"github.com/danielhkuo/civic-sync/router"
	"github.com/danielhkuo/civic-sync/testutil"
)

// startTestServer runs the full API on an httptest listener.
func startTestServer(t *testing.T, conn *sql.DB) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(router.NewRouter(conn, testutil.TestConfig(), handlers.NewHub()))
	t.Cleanup(srv.Close)
	return srv
}

// Full client stack against the real API: session, load, vote, offline
// capture, replay on reconnect, refetch.
func TestClientServerRoundTrip(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	srv := startTestServer(t, conn)

	agendaID := testutil.SeedAgenda(t, conn, "bike-lanes")
	ref := models.EntityRef{Kind: models.KindAgenda, ID: agendaID}
	ctx := context.Background()

	client := remote.NewClient(srv.URL)
	session, err := client.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	user, err := client.Me(ctx)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user == nil || user.ID != session.UserID {
		t.Fatalf("Me returned %+v, want user %s", user, session.UserID)
	}

	c := testCache(t)
	online := true
	sync := New(c, client, Options{
		CurrentUser: func() *models.User { return user },
		Online:      func() bool { return online },
	})

	// Initial load of an unvoted entity.
	state, err := sync.Load(ctx, ref)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state.Likes != 0 || state.UserVote != "" {
		t.Fatalf("fresh entity state: %+v", state)
	}

	// Online vote reaches the service and comes back authoritative.
	state, err = sync.Vote(ctx, ref, models.VoteLike)
	if err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if state.Likes != 1 || state.UserVote != models.VoteLike {
		t.Fatalf("state after like: %+v", state)
	}

	// Offline vote: retract the like locally, queue the intent.
	online = false
	state, err = sync.Vote(ctx, ref, models.VoteLike)
	if err != nil {
		t.Fatalf("offline Vote failed: %v", err)
	}
	if state.Likes != 0 || state.UserVote != "" {
		t.Fatalf("optimistic state after offline retraction: %+v", state)
	}
	if c.PendingActions() != 1 {
		t.Fatalf("queue depth = %d, want 1", c.PendingActions())
	}

	// Server still has the like until replay runs.
	resp, err := client.FetchVotes(ctx, ref)
	if err != nil {
		t.Fatalf("FetchVotes failed: %v", err)
	}
	if resp.Likes != 1 {
		t.Fatalf("server likes before replay = %d, want 1", resp.Likes)
	}

	// Reconnect: the coordinator drains the queue against the real API.
	online = true
	coord := replay.New(c, client, time.Minute)
	coord.Replay(ctx)

	if c.PendingActions() != 0 {
		t.Fatalf("queue depth after replay = %d, want 0", c.PendingActions())
	}

	resp, err = client.FetchVotes(ctx, ref)
	if err != nil {
		t.Fatalf("FetchVotes after replay failed: %v", err)
	}
	if resp.Likes != 0 || resp.UserVote != "" {
		t.Fatalf("server state after replay: %+v", resp)
	}
}

// A second voter's mutation shows up through the SSE stream and triggers
// an authoritative refetch.
func TestChangeEventsAcrossClients(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	srv := startTestServer(t, conn)

	agendaID := testutil.SeedAgenda(t, conn, "night-bus")
	ref := models.EntityRef{Kind: models.KindAgenda, ID: agendaID}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := remote.NewClient(srv.URL)
	if _, err := alice.CreateSession(ctx, "alice"); err != nil {
		t.Fatalf("alice CreateSession failed: %v", err)
	}
	aliceUser, err := alice.Me(ctx)
	if err != nil || aliceUser == nil {
		t.Fatalf("alice Me failed: %v", err)
	}

	c := testCache(t)
	sync := New(c, alice, Options{CurrentUser: func() *models.User { return aliceUser }})
	if _, err := sync.Load(ctx, ref); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	events := alice.Subscribe(ctx, ref)
	watchDone := make(chan struct{})
	go func() {
		sync.Watch(ctx, ref, events)
		close(watchDone)
	}()

	// Give the stream a moment to attach before publishing.
	time.Sleep(100 * time.Millisecond)

	bob := remote.NewClient(srv.URL)
	if _, err := bob.CreateSession(ctx, "bob"); err != nil {
		t.Fatalf("bob CreateSession failed: %v", err)
	}
	if _, err := bob.SubmitVote(ctx, ref, models.VoteDislike); err != nil {
		t.Fatalf("bob SubmitVote failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		state, _ := sync.State(ref)
		if state.Dislikes == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("refetch never observed bob's vote; state %+v", state)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-watchDone
}
