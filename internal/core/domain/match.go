package domain

import "github.com/google/uuid"

// MatchCandidate - результат оценки пары (объект, профиль). Не сохраняется.
type MatchCandidate struct {
	ListingID  uuid.UUID `json:"listing_id"`
	ClientID   uuid.UUID `json:"client_id"`
	Score      int       `json:"score"`
	Gated      bool      `json:"gated"`
	GateReason string    `json:"gate_reason,omitempty"`
	Reasoning  string    `json:"reasoning"`
}

// ScoredMatch - вход TaskEngine: оценка вместе с объектом и клиентом
type ScoredMatch struct {
	Candidate MatchCandidate
	Listing   Listing
	Client    Client
}
