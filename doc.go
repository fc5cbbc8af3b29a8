// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the civic-sync API server.

Civic-sync is a civic-engagement platform: citizens browse reform agendas,
vote on them, and submit suggestions and opinions. This module contains
both the API server and the official Go sync client used by
offline-capable frontends.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=civic.db SESSION_SECRET=... go run main.go

Or with flags:

	go run main.go -p 3324 -d civic.db --session-secret ...

A YAML config file may supply any setting (-c config.yaml); flags and
environment variables take precedence.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (votes, suggestions, opinions,
    agendas, sessions, SSE events)
  - router: route definitions using Go 1.22+ routing, with CSRF and
    rate-limit guards on mutations
  - middleware: CORS, logging, JSON helpers, CSRF, rate limiting
  - models: request/response and domain types
  - auth: session token minting and validation
  - db: schema creation (sqlite or postgres)
  - cliparse: configuration parsing
  - metrics: Prometheus collectors and the /metrics listener

# Sync Client

The client half of the module implements the offline cache and
synchronization layer consumed by frontends:

  - storage: quota-bounded key-value tier + structured record tier
  - cache: versioned TTL envelope, cache manager, durable offline queue
  - remote: HTTP/SSE client for this API
  - votesync: optimistic per-entity vote synchronizer
  - replay: connectivity watcher and offline-action replay

See package documentation for each component.
*/
package main
