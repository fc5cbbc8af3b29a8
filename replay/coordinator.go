// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielhkuo/civic-sync/cache"
	"github.com/danielhkuo/civic-sync/metrics"
	"github.com/danielhkuo/civic-sync/models"
	"github.com/danielhkuo/civic-sync/remote"
)

// Service is the remote surface replay needs. *remote.Client satisfies it.
type Service interface {
	Ping(ctx context.Context) error
	SubmitVote(ctx context.Context, ref models.EntityRef, voteType string) (models.VoteResponse, error)
	SubmitSuggestion(ctx context.Context, req models.SubmitSuggestionRequest) (models.SubmitSuggestionResponse, error)
	SubmitOpinion(ctx context.Context, req models.SubmitOpinionRequest) (models.SubmitOpinionResponse, error)
}

// DefaultInterval is the periodic connectivity/replay check cadence.
const DefaultInterval = 30 * time.Second

// Coordinator watches connectivity and drains the offline action queue,
// strictly in submission order, when the service becomes reachable.
type Coordinator struct {
	cache    *cache.Manager
	svc      Service
	interval time.Duration

	online atomic.Bool
	notify chan struct{}
	mu     sync.Mutex // one replay pass at a time
}

func New(c *cache.Manager, svc Service, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		cache:    c,
		svc:      svc,
		interval: interval,
		notify:   make(chan struct{}, 1),
	}
}

// Online reports the last observed connectivity state.
func (c *Coordinator) Online() bool {
	return c.online.Load()
}

// NotifyOnline asks the coordinator to re-probe immediately, the hook
// for runtime connectivity events. Never blocks.
func (c *Coordinator) NotifyOnline() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Run probes connectivity on a timer and on NotifyOnline, replaying the
// queue whenever the service is reachable and actions are pending.
// Blocks until ctx ends.
func (c *Coordinator) Run(ctx context.Context) {
	c.check(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.check(ctx)
		case <-c.notify:
			c.check(ctx)
		}
	}
}

func (c *Coordinator) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := c.svc.Ping(probeCtx)
	cancel()

	wasOnline := c.online.Swap(err == nil)
	if err != nil {
		if wasOnline {
			slog.Info("connectivity lost", "error", err)
		}
		return
	}
	if !wasOnline {
		slog.Info("connectivity restored", "pending", c.cache.PendingActions())
	}

	if c.cache.PendingActions() > 0 {
		c.Replay(ctx)
	}
}

// Replay drains the queue: peek all pending actions, apply them oldest
// first, acknowledge each confirmed apply, and stop at the first failure
// so order is preserved for the next attempt. At-least-once delivery;
// the dedup keys carried by each action make duplicates harmless.
func (c *Coordinator) Replay(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	actions := c.cache.OfflineActions()
	if len(actions) == 0 {
		return
	}

	metrics.ReplayRuns.Inc()
	slog.Info("replaying offline actions", "count", len(actions))

	for _, a := range actions {
		err := c.apply(ctx, a)
		switch {
		case err == nil:
		case remote.IsConflict(err):
			// Dedup key already applied on a previous, interrupted pass.
			slog.Info("offline action already applied", "kind", a.Kind, "id", a.ID)
		case errors.Is(err, errUndecodable):
			// Can never succeed; dropping it is the only way forward.
			slog.Warn("dropping undecodable offline action", "kind", a.Kind, "id", a.ID, "error", err)
			c.cache.AckOfflineAction()
			metrics.ReplayActions.WithLabelValues("dropped").Inc()
			continue
		default:
			metrics.ReplayActions.WithLabelValues("failed").Inc()
			slog.Warn("replay stopped at failing action",
				"kind", a.Kind, "id", a.ID, "remaining", c.cache.PendingActions(), "error", err)
			return
		}
		c.cache.AckOfflineAction()
		metrics.ReplayActions.WithLabelValues("applied").Inc()
	}

	slog.Info("offline queue drained")
}

// errUndecodable marks an action whose payload cannot be parsed; it is
// dropped rather than allowed to wedge the queue.
var errUndecodable = errors.New("undecodable offline action")

func (c *Coordinator) apply(ctx context.Context, a models.OfflineAction) error {
	applyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch a.Kind {
	case models.ActionVote:
		var p models.VotePayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return fmt.Errorf("%w: vote: %v", errUndecodable, err)
		}
		_, err := c.svc.SubmitVote(applyCtx, p.Entity, p.VoteType)
		return err

	case models.ActionSuggestion:
		var req models.SubmitSuggestionRequest
		if err := json.Unmarshal(a.Payload, &req); err != nil {
			return fmt.Errorf("%w: suggestion: %v", errUndecodable, err)
		}
		if req.DedupKey == "" {
			req.DedupKey = a.ID
		}
		_, err := c.svc.SubmitSuggestion(applyCtx, req)
		return err

	case models.ActionOpinion:
		var req models.SubmitOpinionRequest
		if err := json.Unmarshal(a.Payload, &req); err != nil {
			return fmt.Errorf("%w: opinion: %v", errUndecodable, err)
		}
		if req.DedupKey == "" {
			req.DedupKey = a.ID
		}
		_, err := c.svc.SubmitOpinion(applyCtx, req)
		return err
	}

	return fmt.Errorf("%w: unknown kind %q", errUndecodable, a.Kind)
}
