package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pollgate/internal/domain"
	"pollgate/internal/repository"
	apperrors "pollgate/pkg/errors"
)

const slugBytes = 8

type PollService struct {
	pollRepo   repository.PollRepository
	voteRepo   repository.VoteRepository
	appBaseURL string
	logger     *zap.Logger
}

func NewPollService(pollRepo repository.PollRepository, voteRepo repository.VoteRepository, appBaseURL string, logger *zap.Logger) *PollService {
	return &PollService{
		pollRepo:   pollRepo,
		voteRepo:   voteRepo,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		logger:     logger,
	}
}

// CreatePoll validates the request and stores a new poll. The admin
// token is generated here and disclosed once, inside the admin URL.
func (s *PollService) CreatePoll(ctx context.Context, req *domain.CreatePollRequest) (*domain.CreatePollResponse, error) {
	if err := validateCreatePoll(req); err != nil {
		return nil, err
	}

	options := make([]string, len(req.Options))
	for i, opt := range req.Options {
		options[i] = strings.TrimSpace(opt)
	}

	poll := &domain.Poll{
		Slug:       generateSlug(),
		Title:      strings.TrimSpace(req.Title),
		Options:    options,
		Type:       domain.PollType(req.Type),
		MaxChoices: req.MaxChoices,
		Visibility: domain.Visibility(req.Visibility),
		AdminToken: uuid.NewString(),
	}
	if poll.Visibility == domain.VisibilityRevealAfterN {
		poll.RevealAfterNVotes = req.RevealAfterNVotes
	}

	if err := s.pollRepo.Create(ctx, poll); err != nil {
		return nil, apperrors.NewInternalError("failed to create poll", err)
	}

	s.logger.Info("poll created",
		zap.String("slug", poll.Slug),
		zap.String("visibility", string(poll.Visibility)),
		zap.Int("options", len(poll.Options)))

	return &domain.CreatePollResponse{
		Slug:     poll.Slug,
		AdminURL: fmt.Sprintf("%s/poll/%s/admin/%s", s.appBaseURL, poll.Slug, poll.AdminToken),
	}, nil
}

// GetPoll returns the public metadata for a poll, plus whether the
// calling identity already voted so clients can render a voted state.
func (s *PollService) GetPoll(ctx context.Context, slug, clientHash string) (*domain.PollResponse, error) {
	poll, err := s.pollRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get poll", err)
	}
	if poll == nil {
		return nil, apperrors.NewNotFoundError("poll not found")
	}

	hasVoted, err := s.voteRepo.HasVoted(ctx, poll.ID, clientHash)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check existing vote", err)
	}

	return &domain.PollResponse{
		ID:                poll.ID,
		Slug:              poll.Slug,
		Title:             poll.Title,
		Options:           poll.Options,
		Type:              string(poll.Type),
		MaxChoices:        poll.MaxChoices,
		Visibility:        string(poll.Visibility),
		RevealAfterNVotes: poll.RevealAfterNVotes,
		HasVoted:          hasVoted,
	}, nil
}

// DeletePoll irreversibly removes a poll and everything it owns. The
// wrong-token and unknown-slug cases are indistinguishable to the caller.
func (s *PollService) DeletePoll(ctx context.Context, slug, adminToken string) error {
	if adminToken == "" {
		return apperrors.NewUnauthorizedError("admin token required")
	}

	deleted, err := s.pollRepo.Delete(ctx, slug, adminToken)
	if err != nil {
		return apperrors.NewInternalError("failed to delete poll", err)
	}
	if !deleted {
		return apperrors.NewNotFoundError("poll not found or invalid admin token")
	}

	s.logger.Info("poll deleted", zap.String("slug", slug))
	return nil
}

func validateCreatePoll(req *domain.CreatePollRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > domain.MaxTitleLength {
		return apperrors.NewValidationError("invalid title", nil)
	}

	if !domain.ValidOptions(req.Options) {
		return apperrors.NewValidationError(
			fmt.Sprintf("options must be %d-%d strings, each up to %d characters",
				domain.MinOptions, domain.MaxOptions, domain.MaxOptionLength), nil)
	}

	if req.Type != string(domain.PollTypeSingle) && req.Type != string(domain.PollTypeMulti) {
		return apperrors.NewValidationError("type must be single or multi", nil)
	}

	if !domain.ValidTypeAndChoices(req.Type, req.MaxChoices, len(req.Options)) {
		return apperrors.NewValidationError("invalid max_choices for poll type", nil)
	}

	if !domain.ValidVisibility(req.Visibility) {
		return apperrors.NewValidationError("invalid visibility option", nil)
	}

	if req.Visibility == string(domain.VisibilityRevealAfterN) && req.RevealAfterNVotes < 1 {
		return apperrors.NewValidationError("reveal_after_n_votes must be a positive number", nil)
	}

	return nil
}

// generateSlug returns an unguessable URL-safe slug
func generateSlug() string {
	buf := make([]byte, slugBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in no state to serve
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
