// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // record tier driver

	"github.com/danielhkuo/civic-sync/models"
)

func TestEvictExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := testManager(t, "v1", &now)

	require.True(t, m.Set("cs:votes:agenda:1", models.VoteState{Likes: 1}, 5*time.Minute))
	require.True(t, m.Set("cs:static:agendas", "reference", StaticTTL))
	require.True(t, m.Set("cs:user:alice", "profile", UserTTL))

	now = now.Add(time.Hour) // vote entry expired, others alive

	removed := m.EvictExpired()
	assert.Equal(t, 1, removed)

	var s string
	assert.True(t, m.Get("cs:static:agendas", &s))
	assert.True(t, m.Get("cs:user:alice", &s))
}

func TestSetEvictsAndRetriesOnQuota(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	// Quota fits roughly one large value at a time.
	m, err := New(Options{
		Dir:           dir,
		SchemaVersion: "v1",
		KVQuota:       4096,
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)
	defer m.Close()

	big := strings.Repeat("x", 3000)
	require.True(t, m.Set("cs:static:first", big, 5*time.Minute))

	// Second write cannot fit alongside the first; once the first entry
	// expires the eviction retry makes room.
	now = now.Add(10 * time.Minute)
	assert.True(t, m.Set("cs:static:second", big, 5*time.Minute))

	var out string
	assert.True(t, m.Get("cs:static:second", &out))
	assert.False(t, m.Get("cs:static:first", &out))
}

func TestSetRejectedWhenNothingToEvict(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m, err := New(Options{
		Dir:           t.TempDir(),
		SchemaVersion: "v1",
		KVQuota:       256,
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)
	defer m.Close()

	big := strings.Repeat("x", 1024)
	assert.False(t, m.Set("cs:static:huge", big, time.Minute))
}

func TestClearAll(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := testManager(t, "v1", &now)
	ctx := context.Background()

	require.True(t, m.Set("cs:votes:agenda:1", models.VoteState{Likes: 3}, VoteTTL))
	m.PutRecord(ctx, "agendas", "a1", models.Agenda{ID: "a1", Title: "t"}, StaticTTL)

	action, err := models.NewVoteAction(models.EntityRef{Kind: "agenda", ID: "1"}, models.VoteLike)
	require.NoError(t, err)
	require.NoError(t, m.EnqueueOfflineAction(action))

	m.ClearAll(ctx)

	var vs models.VoteState
	assert.False(t, m.Get("cs:votes:agenda:1", &vs))
	var ag models.Agenda
	assert.False(t, m.GetRecord(ctx, "agendas", "a1", &ag))
	assert.Equal(t, 0, m.PendingActions())
}

func TestRecordTierRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := testManager(t, "v1", &now)
	ctx := context.Background()

	in := models.Agenda{ID: "a1", Title: "Bike lanes", Status: models.AgendaStatusOpen}
	require.True(t, m.PutRecord(ctx, "agendas", in.ID, in, StaticTTL))

	var out models.Agenda
	require.True(t, m.GetRecord(ctx, "agendas", in.ID, &out))
	assert.Equal(t, in.Title, out.Title)

	// Expired records miss.
	now = now.Add(StaticTTL + time.Second)
	assert.False(t, m.GetRecord(ctx, "agendas", in.ID, &out))
}

func TestOfflineQueueFIFO(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := testManager(t, "v1", &now)

	for _, id := range []string{"e1", "e2", "e3"} {
		a, err := models.NewVoteAction(models.EntityRef{Kind: "agenda", ID: id}, models.VoteLike)
		require.NoError(t, err)
		require.NoError(t, m.EnqueueOfflineAction(a))
	}

	actions := m.OfflineActions()
	require.Len(t, actions, 3)

	entityIDs := func(actions []models.OfflineAction) []string {
		var ids []string
		for _, a := range actions {
			var p models.VotePayload
			require.NoError(t, json.Unmarshal(a.Payload, &p))
			ids = append(ids, p.Entity.ID)
		}
		return ids
	}
	assert.Equal(t, []string{"e1", "e2", "e3"}, entityIDs(actions))

	// Peek does not remove.
	assert.Equal(t, 3, m.PendingActions())

	m.AckOfflineAction()
	assert.Equal(t, []string{"e2", "e3"}, entityIDs(m.OfflineActions()))

	m.ClearOfflineActions()
	assert.Empty(t, m.OfflineActions())
}

func TestOfflineQueueSurvivesReopen(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	m1, err := New(Options{Dir: dir, SchemaVersion: "v1", Now: func() time.Time { return now }})
	require.NoError(t, err)

	for _, id := range []string{"e1", "e2"} {
		a, aerr := models.NewVoteAction(models.EntityRef{Kind: "agenda", ID: id}, models.VoteDislike)
		require.NoError(t, aerr)
		require.NoError(t, m1.EnqueueOfflineAction(a))
	}
	m1.AckOfflineAction()
	require.NoError(t, m1.Close())

	m2, err := New(Options{Dir: dir, SchemaVersion: "v1", Now: func() time.Time { return now }})
	require.NoError(t, err)
	defer m2.Close()

	actions := m2.OfflineActions()
	require.Len(t, actions, 1)

	var p models.VotePayload
	require.NoError(t, json.Unmarshal(actions[0].Payload, &p))
	assert.Equal(t, "e2", p.Entity.ID)
}
