package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pollgate/internal/domain"
	"pollgate/internal/identity"
	"pollgate/internal/repository"
	apperrors "pollgate/pkg/errors"
	"pollgate/pkg/redis"
)

type PaymentService struct {
	pollRepo    repository.PollRepository
	paymentRepo repository.PaymentRepository
	provider    PaymentProvider
	redis       *redis.Client
	appBaseURL  string
	amount      int64
	logger      *zap.Logger
}

func NewPaymentService(
	pollRepo repository.PollRepository,
	paymentRepo repository.PaymentRepository,
	provider PaymentProvider,
	redisClient *redis.Client,
	appBaseURL string,
	amount int64,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		pollRepo:    pollRepo,
		paymentRepo: paymentRepo,
		provider:    provider,
		redis:       redisClient,
		appBaseURL:  strings.TrimRight(appBaseURL, "/"),
		amount:      amount,
		logger:      logger,
	}
}

// CreateCheckout starts a hosted checkout for a pay_to_view poll and
// records the pending payment. The reveal token is minted here, before
// payment, and only becomes useful once the confirmation lands.
func (s *PaymentService) CreateCheckout(ctx context.Context, slug string, id identity.Identity) (*domain.CheckoutResponse, error) {
	poll, err := s.pollRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get poll", err)
	}
	if poll == nil {
		return nil, apperrors.NewNotFoundError("poll not found")
	}

	if poll.Visibility != domain.VisibilityPayToView {
		return nil, apperrors.NewValidationError("this poll does not require payment to view results", nil)
	}

	existing, err := s.paymentRepo.FindPaidByHash(ctx, poll.ID, id.Hash)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check payment", err)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError("you have already paid to view results for this poll")
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutSessionParams{
		Amount:     s.amount,
		PollTitle:  poll.Title,
		SuccessURL: fmt.Sprintf("%s/poll/%s?payment=success", s.appBaseURL, slug),
		CancelURL:  fmt.Sprintf("%s/poll/%s?payment=cancelled", s.appBaseURL, slug),
		Metadata: map[string]string{
			"poll_id":     strconv.FormatInt(poll.ID, 10),
			"client_hash": id.Hash,
			"slug":        slug,
		},
	})
	if err != nil {
		return nil, apperrors.NewExternalError("failed to create checkout session", err)
	}

	payment := &domain.Payment{
		PollID:            poll.ID,
		ClientHash:        id.Hash,
		CheckoutSessionID: session.ID,
		RevealToken:       uuid.NewString(),
		Amount:            s.amount,
	}
	if err := s.paymentRepo.InsertPending(ctx, payment); err != nil {
		return nil, apperrors.NewInternalError("failed to record pending payment", err)
	}

	s.logger.Info("checkout session created",
		zap.String("slug", slug),
		zap.String("session_id", session.ID))

	return &domain.CheckoutResponse{URL: session.URL}, nil
}

// ConfirmCheckout applies a verified checkout-completed event. The
// transition is idempotent: redelivery and unknown sessions are logged
// no-ops, never errors, so the provider can redeliver freely.
func (s *PaymentService) ConfirmCheckout(ctx context.Context, event *CheckoutCompletedEvent) error {
	pollIDRaw := event.Metadata["poll_id"]
	clientHash := event.Metadata["client_hash"]
	if pollIDRaw == "" || clientHash == "" {
		return apperrors.NewValidationError("missing metadata in confirmation event", nil)
	}

	pollID, err := strconv.ParseInt(pollIDRaw, 10, 64)
	if err != nil {
		return apperrors.NewValidationError("malformed poll_id in confirmation event", nil)
	}

	revealToken, found, err := s.paymentRepo.MarkPaid(ctx, pollID, clientHash, event.SessionID, event.PaymentIntentID)
	if err != nil {
		return apperrors.NewInternalError("failed to mark payment paid", err)
	}

	if !found {
		s.logger.Info("payment confirmation matched no pending record, ignoring",
			zap.String("session_id", event.SessionID),
			zap.Int64("poll_id", pollID))
		return nil
	}

	s.cachePaid(pollID, clientHash)

	s.logger.Info("payment marked as completed",
		zap.String("session_id", event.SessionID),
		zap.Int64("poll_id", pollID),
		zap.String("reveal_token_prefix", tokenPrefix(revealToken)))

	return nil
}

// tokenPrefix returns a loggable fragment of a reveal token without
// assuming anything about its length.
func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}

// GetPaymentStatus reports whether the caller's identity already paid,
// returning the reveal token so access survives a device change.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, slug, clientHash string) (*domain.PaymentStatusResponse, error) {
	poll, err := s.pollRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get poll", err)
	}
	if poll == nil {
		return nil, apperrors.NewNotFoundError("poll not found")
	}

	payment, err := s.paymentRepo.FindPaidByHash(ctx, poll.ID, clientHash)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check payment", err)
	}
	if payment == nil {
		return &domain.PaymentStatusResponse{Paid: false}, nil
	}

	return &domain.PaymentStatusResponse{
		Paid:        true,
		RevealToken: payment.RevealToken,
	}, nil
}

func (s *PaymentService) cachePaid(pollID int64, clientHash string) {
	if s.redis == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		key := s.redis.KeyBuilder.KeyClientPaid(pollID, clientHash)
		_ = s.redis.Set(ctx, key, "1", redis.TTLPaid)
	}()
}
