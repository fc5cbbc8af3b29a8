// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the shared domain and wire types for civic-sync.

# Entities

A votable entity is either an agenda (a reform proposal) or a suggestion
attached to one:

	ref := models.EntityRef{Kind: models.KindAgenda, ID: agendaID}

EntityRef.Key() produces the canonical "kind:id" string used for cache keys
and push-channel subscriptions.

# Vote State

VoteState is the client-side view of an entity's votes: aggregate like and
dislike counts plus the current user's own vote ("" when unvoted). The
server's VoteResponse carries the same numbers plus the Operation that a
mutation performed (created, updated, removed); VoteResponse.State() strips
it back down to a VoteState.

# Offline Actions

OfflineAction captures a mutation performed while disconnected. The ID is a
client-generated UUID that the service enforces as a deduplication key, so
replaying an action twice cannot duplicate a suggestion or opinion.

# Push Events

ChangeEvent is what the SSE entity stream delivers. The New/Old payloads are
advisory; consumers treat every event as a refetch trigger only.
*/
package models
