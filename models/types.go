package models

import (
	"encoding/json"
	"time"
)

// Entity kinds, the two votable item types.
const (
	KindAgenda     = "agenda"
	KindSuggestion = "suggestion"
)

// Vote type constants
const (
	VoteLike    = "like"
	VoteDislike = "dislike"
)

// Vote operation results returned by the vote endpoint
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpRemoved = "removed"
)

// Offline action kinds
const (
	ActionVote       = "vote"
	ActionSuggestion = "suggestion"
	ActionOpinion    = "opinion"
)

// EntityRef identifies a votable item.
type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Key returns the cache/subscription key for the entity.
func (e EntityRef) Key() string {
	return e.Kind + ":" + e.ID
}

// VoteState is the per-entity vote view: aggregate counts plus the
// current user's own vote (empty string when the user has not voted).
type VoteState struct {
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
	UserVote string `json:"user_vote,omitempty"`
}

// OfflineAction is a mutation captured while disconnected. ID doubles as
// the server-side deduplication key, so a replay that dies between remote
// apply and queue ack cannot create a second suggestion or opinion.
type OfflineAction struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// VotePayload is the payload of an offline vote action.
type VotePayload struct {
	Entity   EntityRef `json:"entity"`
	VoteType string    `json:"vote_type"`
}

// Request types

type VoteRequest struct {
	VoteType string `json:"vote_type"`
}

type SubmitSuggestionRequest struct {
	AgendaID string `json:"agenda_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	DedupKey string `json:"dedup_key"`
}

type SubmitOpinionRequest struct {
	AgendaID string `json:"agenda_id"`
	Body     string `json:"body"`
	DedupKey string `json:"dedup_key"`
}

type CreateSessionRequest struct {
	Username string `json:"username"`
}

// Response types

type VoteResponse struct {
	Likes     int    `json:"likes"`
	Dislikes  int    `json:"dislikes"`
	UserVote  string `json:"user_vote,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// State converts the wire response into the client-side vote view.
func (r VoteResponse) State() VoteState {
	return VoteState{Likes: r.Likes, Dislikes: r.Dislikes, UserVote: r.UserVote}
}

type SubmitSuggestionResponse struct {
	SuggestionID string `json:"suggestion_id"`
	Message      string `json:"message"`
}

type SubmitOpinionResponse struct {
	OpinionID string `json:"opinion_id"`
	Message   string `json:"message"`
}

type CreateSessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Domain types

type Agenda struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Suggestion struct {
	ID        string    `json:"id"`
	AgendaID  string    `json:"agenda_id,omitempty"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Opinion struct {
	ID        string    `json:"id"`
	AgendaID  string    `json:"agenda_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Agenda status constants
const (
	AgendaStatusOpen     = "open"
	AgendaStatusAdopted  = "adopted"
	AgendaStatusArchived = "archived"
)

// Suggestion moderation states
const (
	SuggestionPending  = "pending"
	SuggestionApproved = "approved"
	SuggestionRejected = "rejected"
)

// Push event types delivered on the entity event stream.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

// ChangeEvent is a push notification for an entity. Payloads are advisory
// only: consumers must refetch rather than patch local state from New/Old,
// since delivery order is not guaranteed.
type ChangeEvent struct {
	EventType string          `json:"event_type"`
	Entity    EntityRef       `json:"entity"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}
