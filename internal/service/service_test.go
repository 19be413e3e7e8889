package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pollgate/internal/domain"
	"pollgate/internal/repository"
	"pollgate/pkg/redis"
)

// Shared fakes for service tests. Repositories are backed by maps; the
// payment provider records calls and returns canned sessions.

type fakePollRepo struct {
	polls     map[string]*domain.Poll
	nextID    int64
	createErr error
	getErr    error
}

func newFakePollRepo(polls ...*domain.Poll) *fakePollRepo {
	repo := &fakePollRepo{polls: make(map[string]*domain.Poll)}
	for _, p := range polls {
		if p.ID == 0 {
			repo.nextID++
			p.ID = repo.nextID
		} else if p.ID > repo.nextID {
			repo.nextID = p.ID
		}
		repo.polls[p.Slug] = p
	}
	return repo
}

func (f *fakePollRepo) Create(_ context.Context, poll *domain.Poll) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	poll.ID = f.nextID
	poll.CreatedAt = time.Now()
	f.polls[poll.Slug] = poll
	return nil
}

func (f *fakePollRepo) GetBySlug(_ context.Context, slug string) (*domain.Poll, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.polls[slug], nil
}

func (f *fakePollRepo) Delete(_ context.Context, slug, adminToken string) (bool, error) {
	poll, ok := f.polls[slug]
	if !ok || poll.AdminToken != adminToken {
		return false, nil
	}
	delete(f.polls, slug)
	return true, nil
}

type fakeVoteRepo struct {
	votes      map[string]*domain.Vote
	selections map[int64][][]int
	insertErr  error
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{
		votes:      make(map[string]*domain.Vote),
		selections: make(map[int64][][]int),
	}
}

func voteKey(pollID int64, clientHash string) string {
	return fmt.Sprintf("%d:%s", pollID, clientHash)
}

func (f *fakeVoteRepo) InsertIfAbsent(_ context.Context, vote *domain.Vote) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	key := voteKey(vote.PollID, vote.ClientHash)
	if _, exists := f.votes[key]; exists {
		return repository.ErrDuplicateVote
	}
	vote.ID = int64(len(f.votes) + 1)
	vote.CreatedAt = time.Now()
	f.votes[key] = vote
	f.selections[vote.PollID] = append(f.selections[vote.PollID], vote.SelectedOptions)
	return nil
}

func (f *fakeVoteRepo) HasVoted(_ context.Context, pollID int64, clientHash string) (bool, error) {
	_, exists := f.votes[voteKey(pollID, clientHash)]
	return exists, nil
}

func (f *fakeVoteRepo) Count(_ context.Context, pollID int64) (int, error) {
	return len(f.selections[pollID]), nil
}

func (f *fakeVoteRepo) ListSelections(_ context.Context, pollID int64) ([][]int, error) {
	return f.selections[pollID], nil
}

func (f *fakeVoteRepo) CountDistinctVoters(_ context.Context, pollID int64) (int, error) {
	count := 0
	for _, vote := range f.votes {
		if vote.PollID == pollID {
			count++
		}
	}
	return count, nil
}

func (f *fakeVoteRepo) Recent(_ context.Context, pollID int64, limit int) ([]domain.RecentVote, error) {
	var recent []domain.RecentVote
	for _, vote := range f.votes {
		if vote.PollID != pollID {
			continue
		}
		recent = append(recent, domain.RecentVote{
			SelectedOptions: vote.SelectedOptions,
			CreatedAt:       vote.CreatedAt,
			IPAddress:       vote.IPAddress,
		})
		if len(recent) == limit {
			break
		}
	}
	return recent, nil
}

type fakePaymentRepo struct {
	payments  []*domain.Payment
	insertErr error
}

func (f *fakePaymentRepo) InsertPending(_ context.Context, payment *domain.Payment) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	payment.ID = int64(len(f.payments) + 1)
	payment.CreatedAt = time.Now()
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakePaymentRepo) MarkPaid(_ context.Context, pollID int64, clientHash, checkoutSessionID, paymentIntentID string) (string, bool, error) {
	for _, p := range f.payments {
		if p.PollID == pollID && p.ClientHash == clientHash && p.CheckoutSessionID == checkoutSessionID && !p.Paid {
			now := time.Now()
			p.Paid = true
			p.PaidAt = &now
			p.PaymentIntentID = paymentIntentID
			return p.RevealToken, true, nil
		}
	}
	return "", false, nil
}

func (f *fakePaymentRepo) FindPaidByHash(_ context.Context, pollID int64, clientHash string) (*domain.Payment, error) {
	for _, p := range f.payments {
		if p.PollID == pollID && p.ClientHash == clientHash && p.Paid {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) FindPaidByToken(_ context.Context, pollID int64, revealToken string) (*domain.Payment, error) {
	for _, p := range f.payments {
		if p.PollID == pollID && p.RevealToken == revealToken && p.Paid {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentRepo) Stats(_ context.Context, pollID int64) (int, int64, error) {
	count := 0
	var revenue int64
	for _, p := range f.payments {
		if p.PollID == pollID && p.Paid {
			count++
			revenue += p.Amount
		}
	}
	return count, revenue, nil
}

type fakeProvider struct {
	session    *CheckoutSession
	createErr  error
	lastParams CheckoutSessionParams
	event      *CheckoutCompletedEvent
	verifyErr  error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	f.lastParams = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func (f *fakeProvider) VerifyWebhook(_ []byte, _ string) (*CheckoutCompletedEvent, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.event, nil
}

// newTestRedis spins up a miniredis-backed client. The server shuts down
// with the test; stray async writes after that only produce ignored errors.
func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "staging", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}
