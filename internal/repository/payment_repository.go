package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pollgate/internal/domain"
	"pollgate/pkg/database"
)

type PostgresPaymentRepository struct {
	db *database.PostgresDB
}

func NewPaymentRepository(db *database.PostgresDB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

// InsertPending records a new unpaid payment attempt
func (r *PostgresPaymentRepository) InsertPending(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (poll_id, client_hash, checkout_session_id, reveal_token, amount, paid)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		payment.PollID,
		payment.ClientHash,
		payment.CheckoutSessionID,
		payment.RevealToken,
		payment.Amount,
	).Scan(&payment.ID, &payment.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert pending payment: %w", err)
	}

	return nil
}

// MarkPaid transitions the matching pending payment to paid. The paid =
// false guard makes redelivery a no-op: the second delivery matches no
// row and reports found = false.
func (r *PostgresPaymentRepository) MarkPaid(ctx context.Context, pollID int64, clientHash, checkoutSessionID, paymentIntentID string) (string, bool, error) {
	query := `
		UPDATE payments
		SET paid = true, paid_at = NOW(), payment_intent_id = $1
		WHERE poll_id = $2 AND client_hash = $3 AND checkout_session_id = $4 AND paid = false
		RETURNING reveal_token
	`

	var revealToken string
	err := r.db.Pool.QueryRow(ctx, query, paymentIntentID, pollID, clientHash, checkoutSessionID).Scan(&revealToken)

	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to mark payment paid: %w", err)
	}

	return revealToken, true, nil
}

// FindPaidByHash returns a paid payment for the identity hash
func (r *PostgresPaymentRepository) FindPaidByHash(ctx context.Context, pollID int64, clientHash string) (*domain.Payment, error) {
	query := `
		SELECT id, poll_id, client_hash, checkout_session_id, COALESCE(payment_intent_id, ''), reveal_token, amount, paid, paid_at, created_at
		FROM payments
		WHERE poll_id = $1 AND client_hash = $2 AND paid = true
		LIMIT 1
	`

	return r.scanOne(ctx, query, pollID, clientHash)
}

// FindPaidByToken returns a paid payment for the reveal token
func (r *PostgresPaymentRepository) FindPaidByToken(ctx context.Context, pollID int64, revealToken string) (*domain.Payment, error) {
	query := `
		SELECT id, poll_id, client_hash, checkout_session_id, COALESCE(payment_intent_id, ''), reveal_token, amount, paid, paid_at, created_at
		FROM payments
		WHERE poll_id = $1 AND reveal_token = $2 AND paid = true
		LIMIT 1
	`

	return r.scanOne(ctx, query, pollID, revealToken)
}

func (r *PostgresPaymentRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*domain.Payment, error) {
	var payment domain.Payment

	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&payment.ID,
		&payment.PollID,
		&payment.ClientHash,
		&payment.CheckoutSessionID,
		&payment.PaymentIntentID,
		&payment.RevealToken,
		&payment.Amount,
		&payment.Paid,
		&payment.PaidAt,
		&payment.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

// Stats returns the poll's paid payment count and summed revenue
func (r *PostgresPaymentRepository) Stats(ctx context.Context, pollID int64) (int, int64, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM payments
		WHERE poll_id = $1 AND paid = true
	`

	var count int
	var revenue int64
	if err := r.db.Pool.QueryRow(ctx, query, pollID).Scan(&count, &revenue); err != nil {
		return 0, 0, fmt.Errorf("failed to get payment stats: %w", err)
	}

	return count, revenue, nil
}
