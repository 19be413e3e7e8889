package repository

import (
	"context"

	"pollgate/internal/domain"
)

// PollRepository defines the interface for poll persistence
type PollRepository interface {
	// Create inserts a new poll, filling ID and CreatedAt
	Create(ctx context.Context, poll *domain.Poll) error

	// GetBySlug retrieves a poll by slug; nil when not found
	GetBySlug(ctx context.Context, slug string) (*domain.Poll, error)

	// Delete removes a poll and, by cascade, its votes and payments.
	// Returns false when no poll matches the slug and admin token.
	Delete(ctx context.Context, slug, adminToken string) (bool, error)
}

// VoteRepository defines the interface for vote persistence
type VoteRepository interface {
	// InsertIfAbsent records a vote, returning ErrDuplicateVote when the
	// (poll, client hash) pair already voted. The check and the insert
	// are one atomic operation backed by a unique constraint.
	InsertIfAbsent(ctx context.Context, vote *domain.Vote) error

	// HasVoted reports whether the identity hash already voted on the poll
	HasVoted(ctx context.Context, pollID int64, clientHash string) (bool, error)

	// Count returns the poll's stored vote count
	Count(ctx context.Context, pollID int64) (int, error)

	// ListSelections returns every vote's selection set for aggregation
	ListSelections(ctx context.Context, pollID int64) ([][]int, error)

	// CountDistinctVoters returns the number of distinct identity hashes
	CountDistinctVoters(ctx context.Context, pollID int64) (int, error)

	// Recent returns the newest votes for the admin activity feed
	Recent(ctx context.Context, pollID int64, limit int) ([]domain.RecentVote, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// InsertPending records a new unpaid payment attempt, filling ID and CreatedAt
	InsertPending(ctx context.Context, payment *domain.Payment) error

	// MarkPaid transitions the matching pending payment to paid and
	// stores the provider payment reference. Returns the reveal token
	// and false when no matching unpaid record exists (redelivery or
	// unknown session), which callers treat as a no-op.
	MarkPaid(ctx context.Context, pollID int64, clientHash, checkoutSessionID, paymentIntentID string) (string, bool, error)

	// FindPaidByHash returns a paid payment for the identity hash; nil when none
	FindPaidByHash(ctx context.Context, pollID int64, clientHash string) (*domain.Payment, error)

	// FindPaidByToken returns a paid payment for the reveal token; nil when none
	FindPaidByToken(ctx context.Context, pollID int64, revealToken string) (*domain.Payment, error)

	// Stats returns the poll's paid payment count and summed revenue
	Stats(ctx context.Context, pollID int64) (int, int64, error)
}
