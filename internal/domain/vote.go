package domain

import "time"

// Vote records one identity's selections on a poll. Immutable once
// created; at most one per (poll, client hash), enforced by the store.
type Vote struct {
	ID              int64     `json:"id"`
	PollID          int64     `json:"poll_id"`
	ClientHash      string    `json:"client_hash"`
	IPAddress       string    `json:"ip_address"`
	SelectedOptions []int     `json:"selected_options"`
	CreatedAt       time.Time `json:"created_at"`
}

// VoteRequest is the body for POST /api/polls/{slug}/vote
type VoteRequest struct {
	SelectedOptions []int `json:"selected_options"`
}

// VoteResponse is returned after a successful vote
type VoteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
