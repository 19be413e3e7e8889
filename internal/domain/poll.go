package domain

import (
	"strings"
	"time"
)

// PollType determines how many options a voter may select
type PollType string

const (
	PollTypeSingle PollType = "single"
	PollTypeMulti  PollType = "multi"
)

// Visibility determines who may view a poll's results
type Visibility string

const (
	VisibilityPublic       Visibility = "public"
	VisibilityPayToView    Visibility = "pay_to_view"
	VisibilityRevealAfterN Visibility = "reveal_after_n_votes"
)

// Option and title limits, matching what the frontend enforces.
const (
	MinOptions      = 2
	MaxOptions      = 10
	MaxOptionLength = 200
	MaxTitleLength  = 500
)

// Poll represents an anonymous poll. AdminToken is generated once at
// creation and never recoverable afterwards.
type Poll struct {
	ID                int64      `json:"id"`
	Slug              string     `json:"slug"`
	Title             string     `json:"title"`
	Options           []string   `json:"options"`
	Type              PollType   `json:"type"`
	MaxChoices        int        `json:"max_choices"`
	Visibility        Visibility `json:"visibility"`
	RevealAfterNVotes int        `json:"reveal_after_n_votes,omitempty"`
	AdminToken        string     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
}

// CreatePollRequest is the body for POST /api/polls
type CreatePollRequest struct {
	Title             string   `json:"title"`
	Options           []string `json:"options"`
	Type              string   `json:"type"`
	MaxChoices        int      `json:"max_choices"`
	Visibility        string   `json:"visibility"`
	RevealAfterNVotes int      `json:"reveal_after_n_votes"`
}

// CreatePollResponse is returned after successful poll creation. AdminURL
// is the only place the admin token is ever disclosed.
type CreatePollResponse struct {
	Slug     string `json:"slug"`
	AdminURL string `json:"admin_url"`
}

// PollResponse is the public poll metadata (no admin token, no results).
// HasVoted reflects the calling identity so clients can render a voted
// state without attempting a submission.
type PollResponse struct {
	ID                int64    `json:"id"`
	Slug              string   `json:"slug"`
	Title             string   `json:"title"`
	Options           []string `json:"options"`
	Type              string   `json:"type"`
	MaxChoices        int      `json:"max_choices"`
	Visibility        string   `json:"visibility"`
	RevealAfterNVotes int      `json:"reveal_after_n_votes,omitempty"`
	HasVoted          bool     `json:"has_voted"`
}

// ValidOptions reports whether options is a list of 2-10 non-blank
// strings, each at most 200 characters.
func ValidOptions(options []string) bool {
	if len(options) < MinOptions || len(options) > MaxOptions {
		return false
	}
	for _, opt := range options {
		if strings.TrimSpace(opt) == "" || len(opt) > MaxOptionLength {
			return false
		}
	}
	return true
}

// ValidTypeAndChoices reports whether maxChoices is consistent with the
// poll type: exactly 1 for single, 2..optionCount for multi.
func ValidTypeAndChoices(pollType string, maxChoices, optionCount int) bool {
	switch PollType(pollType) {
	case PollTypeSingle:
		return maxChoices == 1
	case PollTypeMulti:
		return maxChoices > 1 && maxChoices <= optionCount
	default:
		return false
	}
}

// ValidVisibility reports whether v names a known visibility mode
func ValidVisibility(v string) bool {
	switch Visibility(v) {
	case VisibilityPublic, VisibilityPayToView, VisibilityRevealAfterN:
		return true
	default:
		return false
	}
}
