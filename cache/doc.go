// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cache is the offline cache layer: a versioned TTL envelope over the
local storage tiers plus the durable offline action queue.

# Envelope

Every cached value is wrapped in an Entry carrying the schema version and an
absolute expiry. Reads validate both; an entry that fails validation is
purged and reported as a miss, so stale or wrong-shape data from a previous
release is never served. Bump SchemaVersion to invalidate everything.

# Manager

Manager is constructed once at startup and passed to consumers:

	mgr, err := cache.New(cache.Options{Dir: dataDir})
	mgr.Set(cache.VoteKey(ref), state, cache.VoteTTL)

	var state models.VoteState
	if mgr.Get(cache.VoteKey(ref), &state) { ... }

Category TTLs: StaticTTL (7 days) for reference content, VoteTTL (5 minutes)
for vote counts, UserTTL (12 hours) for user-specific records.

Storage failures are never fatal: quota rejection triggers one eviction pass
and a retry, then degrades to "not cached". ClearAll wipes every key the
package owns across both tiers. It is the user-facing local reset and does
not touch remote data.

# Offline Queue

Mutations made while disconnected are appended as OfflineActions to a
write-ahead log (tidwall/wal). The replay coordinator reads the pending
actions without removing them and acknowledges each one only after the
remote apply is confirmed, which preserves submission order and gives
at-least-once delivery. Action IDs double as server dedup keys, so the
duplicate window around a crash mid-replay is harmless.
*/
package cache
