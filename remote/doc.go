// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package remote is the HTTP client for the civic-sync service: vote reads
and mutations, suggestion/opinion submission, the session-based identity
provider, and the per-entity server-sent event stream.

# Sessions

	client := remote.NewClient("https://api.example.org")
	sess, err := client.CreateSession(ctx, "alice")

CreateSession installs the returned token; Me reports the current user or
nil when signed out. Mutations carry an Origin header matching the base
URL, which the service's CSRF guard requires.

# Errors

Non-2xx responses surface as *StatusError. IsUnauthenticated and
IsConflict cover the two cases callers branch on: a missing session, and a
dedup key that was already applied.

# Push Events

Subscribe delivers models.ChangeEvent values until the context ends,
re-dialing the stream after interruptions. Events are refetch triggers
only; no ordering or delivery guarantee exists beyond "eventually
notified".
*/
package remote
