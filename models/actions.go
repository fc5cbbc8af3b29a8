package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Offline action constructors. Each action gets a fresh UUID that the
// service enforces as a deduplication key on replay.

func NewVoteAction(ref EntityRef, voteType string) (OfflineAction, error) {
	return newAction(ActionVote, VotePayload{Entity: ref, VoteType: voteType})
}

func NewSuggestionAction(req SubmitSuggestionRequest) (OfflineAction, error) {
	a, err := newAction(ActionSuggestion, req)
	if err != nil {
		return OfflineAction{}, err
	}
	if req.DedupKey == "" {
		req.DedupKey = a.ID
		a.Payload, err = json.Marshal(req)
	}
	return a, err
}

func NewOpinionAction(req SubmitOpinionRequest) (OfflineAction, error) {
	a, err := newAction(ActionOpinion, req)
	if err != nil {
		return OfflineAction{}, err
	}
	if req.DedupKey == "" {
		req.DedupKey = a.ID
		a.Payload, err = json.Marshal(req)
	}
	return a, err
}

func newAction(kind string, payload any) (OfflineAction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OfflineAction{}, err
	}
	return OfflineAction{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     raw,
		SubmittedAt: time.Now(),
	}, nil
}
