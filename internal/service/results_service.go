package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"pollgate/internal/access"
	"pollgate/internal/domain"
	"pollgate/internal/repository"
	apperrors "pollgate/pkg/errors"
	"pollgate/pkg/redis"
)

const recentVotesLimit = 20

// ResultsQuery carries the caller's credentials for a results fetch.
// AdminToken and RevealToken are optional; ClientHash is always present.
type ResultsQuery struct {
	AdminToken  string
	RevealToken string
	ClientHash  string
}

type ResultsService struct {
	pollRepo    repository.PollRepository
	voteRepo    repository.VoteRepository
	paymentRepo repository.PaymentRepository
	redis       *redis.Client
	logger      *zap.Logger
}

func NewResultsService(
	pollRepo repository.PollRepository,
	voteRepo repository.VoteRepository,
	paymentRepo repository.PaymentRepository,
	redisClient *redis.Client,
	logger *zap.Logger,
) *ResultsService {
	return &ResultsService{
		pollRepo:    pollRepo,
		voteRepo:    voteRepo,
		paymentRepo: paymentRepo,
		redis:       redisClient,
		logger:      logger,
	}
}

// GetResults gathers the requester facts, renders the access verdict and,
// when granted, returns the aggregated results.
func (s *ResultsService) GetResults(ctx context.Context, slug string, query ResultsQuery) (*domain.ResultsResponse, error) {
	poll, err := s.pollRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get poll", err)
	}
	if poll == nil {
		return nil, apperrors.NewNotFoundError("poll not found")
	}

	facts, err := s.gatherFacts(ctx, poll, query)
	if err != nil {
		return nil, err
	}

	granted, err := access.CanViewResults(poll, facts)
	if err != nil {
		s.logger.Error("access verdict failed",
			zap.String("slug", slug),
			zap.String("visibility", string(poll.Visibility)),
			zap.Error(err))
		return nil, err
	}
	if !granted {
		return nil, apperrors.NewAccessDeniedError("access denied")
	}

	return s.aggregate(ctx, poll)
}

// gatherFacts performs the storage reads the verdict needs. Only the
// facts the poll's mode consults are fetched.
func (s *ResultsService) gatherFacts(ctx context.Context, poll *domain.Poll, query ResultsQuery) (access.RequesterFacts, error) {
	facts := access.RequesterFacts{
		IsAdmin: query.AdminToken != "" && query.AdminToken == poll.AdminToken,
	}
	if facts.IsAdmin {
		return facts, nil
	}

	switch poll.Visibility {
	case domain.VisibilityPayToView:
		if query.RevealToken != "" {
			payment, err := s.paymentRepo.FindPaidByToken(ctx, poll.ID, query.RevealToken)
			if err != nil {
				return facts, apperrors.NewInternalError("failed to check payment", err)
			}
			facts.PaidByToken = payment != nil
			return facts, nil
		}

		facts.PaidByHash = s.paidCached(ctx, poll.ID, query.ClientHash)
		if !facts.PaidByHash {
			payment, err := s.paymentRepo.FindPaidByHash(ctx, poll.ID, query.ClientHash)
			if err != nil {
				return facts, apperrors.NewInternalError("failed to check payment", err)
			}
			if payment != nil {
				facts.PaidByHash = true
				s.markPaid(poll.ID, query.ClientHash)
			}
		}

	case domain.VisibilityRevealAfterN:
		count, err := s.voteRepo.Count(ctx, poll.ID)
		if err != nil {
			return facts, apperrors.NewInternalError("failed to count votes", err)
		}
		facts.TotalVotes = count
	}

	return facts, nil
}

// aggregate builds the disclosed results with a cache-aside read. Vote
// submission invalidates the key, and the short TTL bounds staleness in
// any case.
func (s *ResultsService) aggregate(ctx context.Context, poll *domain.Poll) (*domain.ResultsResponse, error) {
	var cacheKey string
	if s.redis != nil {
		cacheKey = s.redis.KeyBuilder.KeyPollResults(poll.ID)
		cached, err := s.redis.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var response domain.ResultsResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				return &response, nil
			}
			s.logger.Warn("results cache corrupted, falling back to database",
				zap.Int64("poll_id", poll.ID))
		case !redis.IsNil(err):
			// A miss is the normal cold path; anything else is worth a warning
			s.logger.Warn("results cache read failed, falling back to database",
				zap.Int64("poll_id", poll.ID),
				zap.Error(err))
		}
	}

	selections, err := s.voteRepo.ListSelections(ctx, poll.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load votes", err)
	}

	results, totalVoters, totalSelections := access.Aggregate(poll.Options, selections)

	response := &domain.ResultsResponse{
		Poll: domain.ResultsPoll{
			Title:   poll.Title,
			Options: poll.Options,
		},
		Results:         results,
		TotalVoters:     totalVoters,
		TotalSelections: totalSelections,
	}

	if s.redis != nil {
		if payload, err := json.Marshal(response); err == nil {
			go func() {
				cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = s.redis.Set(cacheCtx, cacheKey, payload, redis.TTLResults)
			}()
		}
	}

	return response, nil
}

// GetAdminView returns the admin analytics dashboard. A wrong token and
// an unknown slug are deliberately indistinguishable.
func (s *ResultsService) GetAdminView(ctx context.Context, slug, adminToken string) (*domain.AdminResponse, error) {
	if adminToken == "" {
		return nil, apperrors.NewUnauthorizedError("admin token required")
	}

	poll, err := s.pollRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get poll", err)
	}
	if poll == nil || poll.AdminToken != adminToken {
		return nil, apperrors.NewNotFoundError("poll not found or invalid admin token")
	}

	totalVotes, err := s.voteRepo.Count(ctx, poll.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count votes", err)
	}

	uniqueVoters, err := s.voteRepo.CountDistinctVoters(ctx, poll.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count voters", err)
	}

	totalPayments, revenue, err := s.paymentRepo.Stats(ctx, poll.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get payment stats", err)
	}

	recentVotes, err := s.voteRepo.Recent(ctx, poll.ID, recentVotesLimit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list recent votes", err)
	}
	if recentVotes == nil {
		recentVotes = []domain.RecentVote{}
	}

	return &domain.AdminResponse{
		Poll: domain.AdminPoll{
			Title:      poll.Title,
			Options:    poll.Options,
			Visibility: string(poll.Visibility),
			CreatedAt:  poll.CreatedAt,
		},
		Analytics: domain.AdminAnalytics{
			TotalVotes:    totalVotes,
			UniqueVoters:  uniqueVoters,
			TotalPayments: totalPayments,
			Revenue:       revenue,
			RecentVotes:   recentVotes,
		},
	}, nil
}

// paidCached is the Redis fast path for repeat payment lookups
func (s *ResultsService) paidCached(ctx context.Context, pollID int64, clientHash string) bool {
	if s.redis == nil {
		return false
	}

	key := s.redis.KeyBuilder.KeyClientPaid(pollID, clientHash)
	exists, err := s.redis.Exists(ctx, key)
	return err == nil && exists > 0
}

func (s *ResultsService) markPaid(pollID int64, clientHash string) {
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
