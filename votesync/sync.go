// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/civic-sync/cache"
	"github.com/danielhkuo/civic-sync/metrics"
	"github.com/danielhkuo/civic-sync/models"
)

var (
	// ErrSignInRequired means a vote was attempted without a session.
	// Surfaced to the user as an actionable error; nothing was sent.
	ErrSignInRequired = errors.New("sign in required to vote")

	// ErrVoteInFlight means a mutation for this entity has not resolved
	// yet. The caller should wait rather than retry immediately.
	ErrVoteInFlight = errors.New("vote already in flight for this entity")

	// ErrUnknownVoteType rejects anything but like/dislike.
	ErrUnknownVoteType = errors.New("unknown vote type")
)

// Entity phases.
const (
	PhaseIdle    = "idle"
	PhaseLoading = "loading"
	PhaseReady   = "ready"
	PhaseVoting  = "voting"
	PhaseError   = "error"
)

// VoteService is the remote surface the synchronizer needs.
// *remote.Client satisfies it.
type VoteService interface {
	FetchVotes(ctx context.Context, ref models.EntityRef) (models.VoteResponse, error)
	SubmitVote(ctx context.Context, ref models.EntityRef, voteType string) (models.VoteResponse, error)
}

// DefaultVoteTimeout bounds a mutation round-trip so an unresponsive
// service cannot pin an entity in the voting phase forever.
const DefaultVoteTimeout = 15 * time.Second

// Options tune a Synchronizer.
type Options struct {
	// CurrentUser reports the locally known identity, nil when signed
	// out. Must not perform network I/O: the unauthenticated-vote path is
	// required to make zero network calls.
	CurrentUser func() *models.User

	// Online reports connectivity. When it returns false, vote intents
	// are appended to the offline queue instead of sent. Nil means
	// always online.
	Online func() bool

	VoteTimeout time.Duration
}

// Synchronizer reconciles local optimistic vote state, authoritative
// server responses, and push notifications, one entity at a time.
type Synchronizer struct {
	cache *cache.Manager
	svc   VoteService
	opts  Options

	mu       sync.Mutex
	entities map[string]*entityState
}

type entityState struct {
	ref           models.EntityRef
	phase         string
	view          models.VoteState // what the UI shows right now
	authoritative models.VoteState // last server-confirmed state
	confirmed     bool
	inFlight      bool
	gen           uint64 // bumped on Release; stale completions check it
}

// New builds a Synchronizer around an explicit cache manager and remote
// service. One per process; no package-level state.
func New(c *cache.Manager, svc VoteService, opts Options) *Synchronizer {
	if opts.VoteTimeout <= 0 {
		opts.VoteTimeout = DefaultVoteTimeout
	}
	return &Synchronizer{
		cache:    c,
		svc:      svc,
		opts:     opts,
		entities: make(map[string]*entityState),
	}
}

func (s *Synchronizer) entity(ref models.EntityRef) *entityState {
	key := ref.Key()
	ent, ok := s.entities[key]
	if !ok {
		ent = &entityState{ref: ref, phase: PhaseIdle}
		s.entities[key] = ent
	}
	return ent
}

// Load hydrates an entity: cached state first for an immediate paint,
// then an authoritative fetch that replaces it and is re-persisted. The
// cached value is returned alongside the fetch error when the service is
// unreachable, so the UI can fall back to last-known-good.
func (s *Synchronizer) Load(ctx context.Context, ref models.EntityRef) (models.VoteState, error) {
	s.mu.Lock()
	ent := s.entity(ref)
	gen := ent.gen

	var cached models.VoteState
	if s.cache.Get(cache.VoteKey(ref), &cached) {
		ent.view = cached
		ent.phase = PhaseReady
	} else {
		ent.phase = PhaseLoading
	}
	s.mu.Unlock()

	resp, err := s.svc.FetchVotes(ctx, ref)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.relevant(ref, gen) {
		return cached, err
	}

	if err != nil {
		ent.phase = PhaseError
		if ent.confirmed || ent.view != (models.VoteState{}) {
			// Serve stale rather than nothing.
			ent.phase = PhaseReady
		}
		return ent.view, fmt.Errorf("failed to load votes for %s: %w", ref.Key(), err)
	}

	ent.authoritative = resp.State()
	ent.confirmed = true
	ent.view = ent.authoritative
	ent.phase = PhaseReady
	s.cache.Set(cache.VoteKey(ref), ent.view, cache.VoteTTL)
	return ent.view, nil
}

// State returns the current view and phase for an entity.
func (s *Synchronizer) State(ref models.EntityRef) (models.VoteState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent := s.entity(ref)
	return ent.view, ent.phase
}

// Vote applies a vote intent: optimistic local update, then the remote
// mutation, then reconciliation against the server's counts. While a
// mutation is in flight further intents for the same entity are rejected
// with ErrVoteInFlight.
func (s *Synchronizer) Vote(ctx context.Context, ref models.EntityRef, voteType string) (models.VoteState, error) {
	if voteType != models.VoteLike && voteType != models.VoteDislike {
		return models.VoteState{}, ErrUnknownVoteType
	}

	s.mu.Lock()
	ent := s.entity(ref)
	if ent.inFlight {
		view := ent.view
		s.mu.Unlock()
		return view, ErrVoteInFlight
	}

	// Optimistic update, shown and persisted before any I/O.
	prevView := ent.view
	ent.view = applyVote(ent.view, voteType)
	optimistic := ent.view
	s.cache.Set(cache.VoteKey(ref), optimistic, cache.VoteTTL)

	// Authentication gate: no session means no network call at all, and
	// the optimistic update must not outlive the rejection.
	if s.opts.CurrentUser == nil || s.opts.CurrentUser() == nil {
		ent.view = s.rollbackLocked(ent, prevView)
		s.cache.Set(cache.VoteKey(ref), ent.view, cache.VoteTTL)
		s.mu.Unlock()
		return ent.view, ErrSignInRequired
	}

	// Offline: capture the intent for replay and keep the optimistic
	// view; the coordinator reconciles once connectivity returns.
	if s.opts.Online != nil && !s.opts.Online() {
		action, err := models.NewVoteAction(ref, voteType)
		if err == nil {
			err = s.cache.EnqueueOfflineAction(action)
		}
		if err != nil {
			ent.view = s.rollbackLocked(ent, prevView)
			s.cache.Set(cache.VoteKey(ref), ent.view, cache.VoteTTL)
			s.mu.Unlock()
			return ent.view, fmt.Errorf("failed to queue offline vote: %w", err)
		}
		s.mu.Unlock()
		return optimistic, nil
	}

	ent.inFlight = true
	ent.phase = PhaseVoting
	gen := ent.gen
	s.mu.Unlock()

	voteCtx, cancel := context.WithTimeout(ctx, s.opts.VoteTimeout)
	resp, err := s.svc.SubmitVote(voteCtx, ref, voteType)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.relevant(ref, gen) {
		return optimistic, err
	}
	ent.inFlight = false

	if err != nil {
		metrics.VotesSubmitted.WithLabelValues("error").Inc()
		ent.view = s.rollbackLocked(ent, prevView)
		ent.phase = PhaseReady
		s.cache.Set(cache.VoteKey(ref), ent.view, cache.VoteTTL)
		return ent.view, fmt.Errorf("vote failed for %s: %w", ref.Key(), err)
	}

	// Server counts win: concurrent voters may have moved the numbers
	// between our optimistic math and this response.
	metrics.VotesSubmitted.WithLabelValues(resp.Operation).Inc()
	ent.authoritative = resp.State()
	ent.confirmed = true
	ent.view = ent.authoritative
	ent.phase = PhaseReady
	s.cache.Set(cache.VoteKey(ref), ent.view, cache.VoteTTL)
	return ent.view, nil
}

// rollbackLocked restores the last trustworthy state after a failed or
// aborted mutation.
func (s *Synchronizer) rollbackLocked(ent *entityState, fallback models.VoteState) models.VoteState {
	if ent.confirmed {
		return ent.authoritative
	}
	return fallback
}

// HandleChange reacts to a push notification: a full authoritative
// refetch, never an incremental patch of the event payload. A change
// arriving while our own mutation is in flight is skipped; that
// response will reconcile the entity anyway.
func (s *Synchronizer) HandleChange(ctx context.Context, ref models.EntityRef) {
	s.mu.Lock()
	ent := s.entity(ref)
	if ent.inFlight {
		s.mu.Unlock()
		return
	}
	gen := ent.gen
	s.mu.Unlock()

	metrics.VoteRefetches.Inc()
	resp, err := s.svc.FetchVotes(ctx, ref)
	if err != nil {
		slog.Warn("refetch after change event failed", "entity", ref.Key(), "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.relevant(ref, gen) {
		return
	}
	ent.authoritative = resp.State()
	ent.confirmed = true
	ent.view = ent.authoritative
	ent.phase = PhaseReady
	s.cache.Set(cache.VoteKey(ref), ent.view, cache.VoteTTL)
}

// Watch consumes a change-event stream, refetching on every event, until
// the channel closes or ctx ends.
func (s *Synchronizer) Watch(ctx context.Context, ref models.EntityRef, events <-chan models.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			s.HandleChange(ctx, ref)
		}
	}
}

// Release drops an entity's local slot. Any still-running request for it
// discards its result instead of writing into a torn-down entry.
func (s *Synchronizer) Release(ref models.EntityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ent, ok := s.entities[ref.Key()]; ok {
		ent.gen++
		delete(s.entities, ref.Key())
	}
}

// relevant reports whether a completion may still apply its result.
// Callers hold s.mu.
func (s *Synchronizer) relevant(ref models.EntityRef, gen uint64) bool {
	ent, ok := s.entities[ref.Key()]
	return ok && ent.gen == gen
}

// applyVote computes the optimistic next state for a vote intent:
// same type again retracts, a different type switches, otherwise it is a
// first vote. Counts never go below zero.
func applyVote(cur models.VoteState, voteType string) models.VoteState {
	next := cur
	if cur.UserVote == voteType {
		next.UserVote = ""
		decCount(&next, voteType)
		return next
	}
	if cur.UserVote != "" {
		decCount(&next, cur.UserVote)
	}
	incCount(&next, voteType)
	next.UserVote = voteType
	return next
}

func decCount(s *models.VoteState, voteType string) {
	switch voteType {
	case models.VoteLike:
		if s.Likes > 0 {
			s.Likes--
		}
	case models.VoteDislike:
		if s.Dislikes > 0 {
			s.Dislikes--
		}
	}
}

func incCount(s *models.VoteState, voteType string) {
	switch voteType {
	case models.VoteLike:
		s.Likes++
	case models.VoteDislike:
		s.Dislikes++
	}
}
