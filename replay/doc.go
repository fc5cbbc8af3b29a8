// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package replay watches connectivity and re-submits the offline action
queue once the service is reachable again.

# Coordinator

	coord := replay.New(cacheMgr, client, 0)
	go coord.Run(ctx)

Run probes the service health endpoint on a timer; NotifyOnline forces an
immediate probe when the host runtime reports a connectivity event.

# Replay Semantics

Actions replay strictly in submission order. Each confirmed apply is
acknowledged (removed from the durable queue) before the next begins; the
first failure stops the pass, leaving the failing action and everything
behind it untouched for the next attempt. This is at-least-once delivery:
a crash between remote apply and acknowledgment replays that action, and
the per-action dedup key turns the duplicate into a 409 that counts as
applied. Vote replays are idempotent on the server by nature.
*/
package replay
