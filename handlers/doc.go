// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the civic-sync API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - VotesHandler: vote reads and mutations per entity
  - SuggestionsHandler: suggestion submission and listing
  - OpinionsHandler: opinion submission and listing
  - AgendasHandler: agenda listing, retrieval, creation
  - SessionHandler: username-based sessions and identity
  - EventsHandler: per-entity SSE change streams

Handlers are created via constructor functions that accept *sql.DB and
Config:

	votes := handlers.NewVotesHandler(db, cfg, hub)

# Voting

One vote row exists per (user, entity). POST with the same vote_type
removes the row (operation "removed"), a different type updates it
("updated"), a first vote inserts it ("created"); the response always
carries the resulting authoritative counts. GET is anonymous-friendly.

# Deduplication

Suggestions and opinions carry a client-generated dedup_key; replaying a
submission answers 409, which offline clients treat as already applied.

# Change Events

Every committed vote mutation is published to the Hub, which fans it out
to the entity's SSE subscribers as a refetch trigger.
*/
package handlers
