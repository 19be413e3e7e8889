package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pollgate/internal/domain"
	"pollgate/pkg/database"
)

type PostgresPollRepository struct {
	db *database.PostgresDB
}

func NewPollRepository(db *database.PostgresDB) *PostgresPollRepository {
	return &PostgresPollRepository{db: db}
}

// Create inserts a new poll
func (r *PostgresPollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	optionsJSON, err := json.Marshal(poll.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}

	var revealAfter *int
	if poll.Visibility == domain.VisibilityRevealAfterN {
		revealAfter = &poll.RevealAfterNVotes
	}

	query := `
		INSERT INTO polls (slug, title, options, type, max_choices, visibility, reveal_after_n_votes, admin_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		poll.Slug,
		poll.Title,
		optionsJSON,
		poll.Type,
		poll.MaxChoices,
		poll.Visibility,
		revealAfter,
		poll.AdminToken,
	).Scan(&poll.ID, &poll.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}

	return nil
}

// GetBySlug retrieves a poll by slug
func (r *PostgresPollRepository) GetBySlug(ctx context.Context, slug string) (*domain.Poll, error) {
	query := `
		SELECT id, slug, title, options, type, max_choices, visibility, reveal_after_n_votes, admin_token, created_at
		FROM polls
		WHERE slug = $1
	`

	var poll domain.Poll
	var optionsJSON []byte
	var revealAfter *int

	err := r.db.Pool.QueryRow(ctx, query, slug).Scan(
		&poll.ID,
		&poll.Slug,
		&poll.Title,
		&optionsJSON,
		&poll.Type,
		&poll.MaxChoices,
		&poll.Visibility,
		&revealAfter,
		&poll.AdminToken,
		&poll.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	if err := json.Unmarshal(optionsJSON, &poll.Options); err != nil {
		return nil, fmt.Errorf("failed to decode poll options: %w", err)
	}
	if revealAfter != nil {
		poll.RevealAfterNVotes = *revealAfter
	}

	return &poll, nil
}

// Delete removes a poll when slug and admin token match. Votes and
// payments go with it via ON DELETE CASCADE.
func (r *PostgresPollRepository) Delete(ctx context.Context, slug, adminToken string) (bool, error) {
	query := `DELETE FROM polls WHERE slug = $1 AND admin_token = $2`

	tag, err := r.db.Pool.Exec(ctx, query, slug, adminToken)
	if err != nil {
		return false, fmt.Errorf("failed to delete poll: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
