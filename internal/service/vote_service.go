package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pollgate/internal/domain"
	"pollgate/internal/identity"
	"pollgate/internal/repository"
	apperrors "pollgate/pkg/errors"
	"pollgate/pkg/redis"
)

type VoteService struct {
	pollRepo repository.PollRepository
	voteRepo repository.VoteRepository
	redis    *redis.Client
	logger   *zap.Logger
}

func NewVoteService(pollRepo repository.PollRepository, voteRepo repository.VoteRepository, redisClient *redis.Client, logger *zap.Logger) *VoteService {
	return &VoteService{
		pollRepo: pollRepo,
		voteRepo: voteRepo,
		redis:    redisClient,
		logger:   logger,
	}
}

// SubmitVote validates and records one identity's vote. Validation runs
// in a fixed order and each failure is a hard rejection. The dedup
// authority is the storage unique constraint; a SetNX claim on the voted
// marker short-circuits the common repeat case atomically.
func (s *VoteService) SubmitVote(ctx context.Context, slug string, req *domain.VoteRequest, id identity.Identity) (*domain.VoteResponse, error) {
	poll, err := s.pollRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get poll", err)
	}
	if poll == nil {
		return nil, apperrors.NewNotFoundError("poll not found")
	}

	if err := validateSelections(poll, req.SelectedOptions); err != nil {
		return nil, err
	}

	if !s.claimVotedMarker(ctx, poll.ID, id.Hash) {
		return nil, apperrors.NewConflictError("you have already voted in this poll")
	}

	vote := &domain.Vote{
		PollID:          poll.ID,
		ClientHash:      id.Hash,
		IPAddress:       id.IP,
		SelectedOptions: req.SelectedOptions,
	}

	if err := s.voteRepo.InsertIfAbsent(ctx, vote); err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			// The claim already left the marker set, matching the truth
			return nil, apperrors.NewConflictError("you have already voted in this poll")
		}
		// Release the claim so a retry is not falsely blocked by the cache
		s.releaseVotedMarker(ctx, poll.ID, id.Hash)
		return nil, apperrors.NewInternalError("failed to record vote", err)
	}

	s.invalidateResults(poll.ID)

	s.logger.Info("vote recorded",
		zap.String("slug", slug),
		zap.Int64("poll_id", poll.ID),
		zap.Int("selections", len(req.SelectedOptions)))

	return &domain.VoteResponse{Success: true, Message: "Vote recorded successfully"}, nil
}

// validateSelections applies the vote validation order: non-empty set,
// indices in range, then cardinality per poll type.
func validateSelections(poll *domain.Poll, selected []int) error {
	if len(selected) == 0 {
		return apperrors.NewValidationError("must select at least one option", nil)
	}

	for _, idx := range selected {
		if idx < 0 || idx >= len(poll.Options) {
			return apperrors.NewValidationError("invalid option selection", nil)
		}
	}

	if poll.Type == domain.PollTypeSingle && len(selected) != 1 {
		return apperrors.NewValidationError("single choice polls allow only one selection", nil)
	}

	if poll.Type == domain.PollTypeMulti && len(selected) > poll.MaxChoices {
		return apperrors.NewValidationError(
			fmt.Sprintf("too many selections, maximum is %d", poll.MaxChoices), nil)
	}

	return nil
}

// claimVotedMarker is the Redis fast path: SetNX makes the repeat check
// and the mark one atomic operation, so two concurrent submissions from
// the same identity cannot both pass the cache. Redis being absent or
// erroring falls through to the database constraint.
func (s *VoteService) claimVotedMarker(ctx context.Context, pollID int64, clientHash string) bool {
	if s.redis == nil {
		return true
	}

	key := s.redis.KeyBuilder.KeyClientVoted(pollID, clientHash)
	claimed, err := s.redis.SetNX(ctx, key, "1", redis.TTLVoted)
	if err != nil {
		return true
	}
	return claimed
}

func (s *VoteService) releaseVotedMarker(ctx context.Context, pollID int64, clientHash string) {
	if s.redis == nil {
		return
	}

	_ = s.redis.Delete(ctx, s.redis.KeyBuilder.KeyClientVoted(pollID, clientHash))
}

func (s *VoteService) invalidateResults(pollID int64) {
	if s.redis == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.redis.Delete(ctx, s.redis.KeyBuilder.KeyPollResults(pollID))
	}()
}
