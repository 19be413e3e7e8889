package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"pollgate/internal/domain"
	"pollgate/pkg/database"
)

// ErrDuplicateVote is returned when the (poll, client hash) pair already
// has a stored vote. It surfaces the unique-constraint violation so the
// check and the insert stay one atomic storage operation.
var ErrDuplicateVote = errors.New("duplicate vote for this poll and client")

const uniqueViolation = "23505"

type PostgresVoteRepository struct {
	db *database.PostgresDB
}

func NewVoteRepository(db *database.PostgresDB) *PostgresVoteRepository {
	return &PostgresVoteRepository{db: db}
}

// InsertIfAbsent records a vote, relying on the unique (poll_id,
// client_hash) constraint for dedup. Two concurrent submissions from the
// same identity race at the database, and exactly one wins.
func (r *PostgresVoteRepository) InsertIfAbsent(ctx context.Context, vote *domain.Vote) error {
	selectionsJSON, err := json.Marshal(vote.SelectedOptions)
	if err != nil {
		return fmt.Errorf("failed to encode selections: %w", err)
	}

	query := `
		INSERT INTO votes (poll_id, client_hash, ip_address, selected_options)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		vote.PollID,
		vote.ClientHash,
		vote.IPAddress,
		selectionsJSON,
	).Scan(&vote.ID, &vote.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateVote
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	return nil
}

// HasVoted reports whether the identity hash already voted on the poll
func (r *PostgresVoteRepository) HasVoted(ctx context.Context, pollID int64, clientHash string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM votes WHERE poll_id = $1 AND client_hash = $2)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, pollID, clientHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}

	return exists, nil
}

// Count returns the poll's stored vote count
func (r *PostgresVoteRepository) Count(ctx context.Context, pollID int64) (int, error) {
	query := `SELECT COUNT(*) FROM votes WHERE poll_id = $1`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, pollID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}

	return count, nil
}

// ListSelections returns every vote's selection set for aggregation
func (r *PostgresVoteRepository) ListSelections(ctx context.Context, pollID int64) ([][]int, error) {
	query := `SELECT selected_options FROM votes WHERE poll_id = $1`

	rows, err := r.db.Pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}
	defer rows.Close()

	var selections [][]int
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan selections: %w", err)
		}

		var set []int
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("failed to decode stored selections: %w", err)
		}
		selections = append(selections, set)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read selections: %w", err)
	}

	return selections, nil
}

// CountDistinctVoters returns the number of distinct identity hashes
func (r *PostgresVoteRepository) CountDistinctVoters(ctx context.Context, pollID int64) (int, error) {
	query := `SELECT COUNT(DISTINCT client_hash) FROM votes WHERE poll_id = $1`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, pollID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distinct voters: %w", err)
	}

	return count, nil
}

// Recent returns the newest votes for the admin activity feed
func (r *PostgresVoteRepository) Recent(ctx context.Context, pollID int64, limit int) ([]domain.RecentVote, error) {
	// host() renders the INET column as text; scanning binary inet into a
	// string fails at runtime.
	query := `
		SELECT selected_options, created_at, COALESCE(host(ip_address), '')
		FROM votes
		WHERE poll_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, pollID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.RecentVote
	for rows.Next() {
		var vote domain.RecentVote
		var raw []byte

		if err := rows.Scan(&raw, &vote.CreatedAt, &vote.IPAddress); err != nil {
			return nil, fmt.Errorf("failed to scan recent vote: %w", err)
		}
		if err := json.Unmarshal(raw, &vote.SelectedOptions); err != nil {
			return nil, fmt.Errorf("failed to decode stored selections: %w", err)
		}

		votes = append(votes, vote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent votes: %w", err)
	}

	return votes, nil
}
