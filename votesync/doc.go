// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package votesync reconciles three sources of vote truth per entity: local
optimistic updates, authoritative server responses, and push change
notifications.

# State Machine

Each entity moves through idle → loading → ready ⇄ voting, with error as a
recoverable detour on failed fetches. Load paints from cache immediately
(possibly stale), then replaces the view with the authoritative fetch and
re-persists it.

# Vote Intents

	state, err := sync.Vote(ctx, ref, models.VoteLike)

The optimistic rule: voting the same type again retracts it, a different
type switches the vote, otherwise it is a first vote; counts clamp at
zero. The optimistic state is shown and cached before any I/O. The server
response then wins outright, since concurrent voters may have moved the counts.

Guards:

  - no session → ErrSignInRequired, zero network calls, optimistic state
    reverted
  - mutation already in flight for the entity → ErrVoteInFlight
  - offline → the intent is queued for replay and the optimistic view kept
  - mutation round-trips are bounded by VoteTimeout (15s default)

# Push Updates

HandleChange performs a full authoritative refetch; the event payload is
never used as a patch source. Watch drives HandleChange from the channel
returned by remote.(*Client).Subscribe. Release tears an entity down;
completions of requests started before Release discard their results.
*/
package votesync
