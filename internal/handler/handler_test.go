package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pollgate/internal/domain"
	"pollgate/internal/middleware"
	"pollgate/internal/ratelimit"
	"pollgate/internal/repository"
	"pollgate/internal/service"
	"pollgate/pkg/logger"
)

// In-memory repositories and a canned payment provider, enough to drive
// the full HTTP surface through httptest.

type memPollRepo struct {
	polls  map[string]*domain.Poll
	nextID int64
}

func newMemPollRepo() *memPollRepo {
	return &memPollRepo{polls: make(map[string]*domain.Poll)}
}

func (m *memPollRepo) Create(_ context.Context, poll *domain.Poll) error {
	m.nextID++
	poll.ID = m.nextID
	poll.CreatedAt = time.Now()
	m.polls[poll.Slug] = poll
	return nil
}

func (m *memPollRepo) GetBySlug(_ context.Context, slug string) (*domain.Poll, error) {
	return m.polls[slug], nil
}

func (m *memPollRepo) Delete(_ context.Context, slug, adminToken string) (bool, error) {
	poll, ok := m.polls[slug]
	if !ok || poll.AdminToken != adminToken {
		return false, nil
	}
	delete(m.polls, slug)
	return true, nil
}

type memVoteRepo struct {
	votes map[string]*domain.Vote
}

func newMemVoteRepo() *memVoteRepo {
	return &memVoteRepo{votes: make(map[string]*domain.Vote)}
}

func (m *memVoteRepo) key(pollID int64, clientHash string) string {
	return fmt.Sprintf("%d:%s", pollID, clientHash)
}

func (m *memVoteRepo) InsertIfAbsent(_ context.Context, vote *domain.Vote) error {
	key := m.key(vote.PollID, vote.ClientHash)
	if _, exists := m.votes[key]; exists {
		return repository.ErrDuplicateVote
	}
	vote.CreatedAt = time.Now()
	m.votes[key] = vote
	return nil
}

func (m *memVoteRepo) HasVoted(_ context.Context, pollID int64, clientHash string) (bool, error) {
	_, exists := m.votes[m.key(pollID, clientHash)]
	return exists, nil
}

func (m *memVoteRepo) Count(_ context.Context, pollID int64) (int, error) {
	count := 0
	for _, v := range m.votes {
		if v.PollID == pollID {
			count++
		}
	}
	return count, nil
}

func (m *memVoteRepo) ListSelections(_ context.Context, pollID int64) ([][]int, error) {
	var selections [][]int
	for _, v := range m.votes {
		if v.PollID == pollID {
			selections = append(selections, v.SelectedOptions)
		}
	}
	return selections, nil
}

func (m *memVoteRepo) CountDistinctVoters(ctx context.Context, pollID int64) (int, error) {
	return m.Count(ctx, pollID)
}

func (m *memVoteRepo) Recent(_ context.Context, pollID int64, limit int) ([]domain.RecentVote, error) {
	var recent []domain.RecentVote
	for _, v := range m.votes {
		if v.PollID != pollID {
			continue
		}
		recent = append(recent, domain.RecentVote{
			SelectedOptions: v.SelectedOptions,
			CreatedAt:       v.CreatedAt,
			IPAddress:       v.IPAddress,
		})
		if len(recent) == limit {
			break
		}
	}
	return recent, nil
}

type memPaymentRepo struct {
	payments []*domain.Payment
}

func (m *memPaymentRepo) InsertPending(_ context.Context, payment *domain.Payment) error {
	payment.CreatedAt = time.Now()
	m.payments = append(m.payments, payment)
	return nil
}

func (m *memPaymentRepo) MarkPaid(_ context.Context, pollID int64, clientHash, checkoutSessionID, paymentIntentID string) (string, bool, error) {
	for _, p := range m.payments {
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

func (m *memPaymentRepo) FindPaidByHash(_ context.Context, pollID int64, clientHash string) (*domain.Payment, error) {
	for _, p := range m.payments {
		if p.PollID == pollID && p.ClientHash == clientHash && p.Paid {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memPaymentRepo) FindPaidByToken(_ context.Context, pollID int64, revealToken string) (*domain.Payment, error) {
	for _, p := range m.payments {
		if p.PollID == pollID && p.RevealToken == revealToken && p.Paid {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memPaymentRepo) Stats(_ context.Context, pollID int64) (int, int64, error) {
	count := 0
	var revenue int64
	for _, p := range m.payments {
		if p.PollID == pollID && p.Paid {
			count++
			revenue += p.Amount
		}
	}
	return count, revenue, nil
}

type cannedProvider struct {
	session   *service.CheckoutSession
	event     *service.CheckoutCompletedEvent
	verifyErr error
}

func (c *cannedProvider) CreateCheckoutSession(_ context.Context, _ service.CheckoutSessionParams) (*service.CheckoutSession, error) {
	return c.session, nil
}

func (c *cannedProvider) VerifyWebhook(_ []byte, _ string) (*service.CheckoutCompletedEvent, error) {
	if c.verifyErr != nil {
		return nil, c.verifyErr
	}
	return c.event, nil
}

type fixture struct {
	router      *chi.Mux
	pollRepo    *memPollRepo
	voteRepo    *memVoteRepo
	paymentRepo *memPaymentRepo
	provider    *cannedProvider
}

// generousLimiters returns a limiter set that no test will exhaust
// unintentionally.
func generousLimiters(t *testing.T) *ratelimit.Set {
	t.Helper()
	set := &ratelimit.Set{
		Vote:       ratelimit.New(1000, time.Minute),
		Checkout:   ratelimit.New(1000, time.Minute),
		CreatePoll: ratelimit.New(1000, time.Minute),
	}
	t.Cleanup(set.Close)
	return set
}

func newFixture(t *testing.T, limiters *ratelimit.Set) *fixture {
	t.Helper()

	if limiters == nil {
		limiters = generousLimiters(t)
	}

	f := &fixture{
		pollRepo:    newMemPollRepo(),
		voteRepo:    newMemVoteRepo(),
		paymentRepo: &memPaymentRepo{},
		provider:    &cannedProvider{session: &service.CheckoutSession{ID: "cs_test", URL: "https://checkout.example.com/cs_test"}},
	}

	log := logger.NewNop()
	pollService := service.NewPollService(f.pollRepo, f.voteRepo, "https://polls.example.com", zap.NewNop())
	voteService := service.NewVoteService(f.pollRepo, f.voteRepo, nil, zap.NewNop())
	resultsService := service.NewResultsService(f.pollRepo, f.voteRepo, f.paymentRepo, nil, zap.NewNop())
	paymentService := service.NewPaymentService(f.pollRepo, f.paymentRepo, f.provider, nil, "https://polls.example.com", 100, zap.NewNop())

	pollHandler := NewPollHandler(pollService, limiters, log)
	voteHandler := NewVoteHandler(voteService, limiters, log)
	resultsHandler := NewResultsHandler(resultsService, log)
	paymentHandler := NewPaymentHandler(paymentService, f.provider, limiters, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID(log))
	r.Route("/api", func(r chi.Router) {
		r.Route("/polls", func(r chi.Router) {
			r.Post("/", pollHandler.Create)
			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", pollHandler.Get)
				r.Delete("/", pollHandler.Delete)
				r.Post("/vote", voteHandler.Submit)
				r.Get("/results", resultsHandler.Get)
				r.Get("/admin", resultsHandler.Admin)
				r.Post("/checkout", paymentHandler.CreateCheckout)
				r.Get("/payment-status", paymentHandler.Status)
			})
		})
		r.Post("/webhook/stripe", paymentHandler.Webhook)
	})

	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("Accept-Encoding", "gzip")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) addPoll(poll *domain.Poll) *domain.Poll {
	f.pollRepo.nextID++
	poll.ID = f.pollRepo.nextID
	poll.CreatedAt = time.Now()
	f.pollRepo.polls[poll.Slug] = poll
	return poll
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %s", rec.Body.String())
	return errObj["type"].(string)
}
