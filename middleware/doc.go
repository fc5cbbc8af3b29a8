// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and JSON helpers for the
civic-sync service.

# Helpers

  - WithLogging: request start/completion logging with duration
  - JSONResponse / ErrorResponse: JSON body writers
  - ParseJSONBody: request body decoding
  - CORS: permissive CORS for the frontend, preflight included
  - GetClientIP: X-Forwarded-For / X-Real-IP / RemoteAddr extraction

# CSRF Guard

RequireSameOrigin rejects state-changing requests that arrive without a
same-origin Origin or Referer header:

	mux.HandleFunc("POST /opinions",
		middleware.RequireSameOrigin(cfg.AllowedOrigins, handler.Submit))

# Rate Limiting

RateLimiter is a sliding-window counter per key: at most N mutations per
window, with expired timestamps pruned on every check:

	limiter := middleware.NewRateLimiter(30, time.Minute)
	mux.HandleFunc("POST /entities/{kind}/{id}/votes",
		limiter.Limit(keyByIP, votesHandler.Submit))
*/
package middleware
