// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the HTTP routes for the civic-sync API using
Go 1.22+ method routing.

Every state-changing route is wrapped with the same-origin CSRF guard and
the per-IP sliding-window rate limiter; reads get plain request logging.
The SSE event stream is mounted without the logging wrapper because those
connections stay open for the lifetime of a page.
*/
package router
