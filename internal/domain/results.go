package domain

import "time"

// OptionResult is the disclosed tally for a single option. Percentage is
// computed against total selections, not total voters, so multi-select
// percentages do not sum to 100.
type OptionResult struct {
	Option     string `json:"option"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
}

// ResultsPoll is the poll header echoed with disclosed results
type ResultsPoll struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

// ResultsResponse is the full disclosed-results payload
type ResultsResponse struct {
	Poll            ResultsPoll    `json:"poll"`
	Results         []OptionResult `json:"results"`
	TotalVoters     int            `json:"total_voters"`
	TotalSelections int            `json:"total_selections"`
}

// RecentVote is one entry of the admin activity feed. IP is exposed here
// for auditing only; it never participates in access decisions.
type RecentVote struct {
	SelectedOptions []int     `json:"selected_options"`
	CreatedAt       time.Time `json:"created_at"`
	IPAddress       string    `json:"ip_address"`
}

// AdminAnalytics aggregates a poll's vote and payment activity
type AdminAnalytics struct {
	TotalVotes    int          `json:"total_votes"`
	UniqueVoters  int          `json:"unique_voters"`
	TotalPayments int          `json:"total_payments"`
	Revenue       int64        `json:"revenue"`
	RecentVotes   []RecentVote `json:"recent_votes"`
}

// AdminPoll is the poll header for the admin view
type AdminPoll struct {
	Title      string    `json:"title"`
	Options    []string  `json:"options"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"created_at"`
}

// AdminResponse is the admin dashboard payload
type AdminResponse struct {
	Poll      AdminPoll      `json:"poll"`
	Analytics AdminAnalytics `json:"analytics"`
}
