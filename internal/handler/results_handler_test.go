package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollgate/internal/domain"
)

func TestResultsEndpoint(t *testing.T) {
	t.Run("public poll discloses results", func(t *testing.T) {
		f := newFixture(t, nil)
		f.addPoll(votablePoll())

		rec := f.do(t, http.MethodPost, "/api/polls/vote1/vote", map[string]interface{}{
			"selected_options": []int{0},
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/polls/vote1/results", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, float64(1), body["total_voters"])
	})

	t.Run("pay_to_view denies the unpaid", func(t *testing.T) {
		f := newFixture(t, nil)
		f.addPoll(&domain.Poll{
			Slug:       "paid1",
			Title:      "Paid",
			Options:    []string{"A", "B"},
			Type:       domain.PollTypeSingle,
			MaxChoices: 1,
			Visibility: domain.VisibilityPayToView,
		})

		rec := f.do(t, http.MethodGet, "/api/polls/paid1/results", nil, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("pay_to_view honors a reveal token", func(t *testing.T) {
		f := newFixture(t, nil)
		poll := f.addPoll(&domain.Poll{
			Slug:       "paid1",
			Title:      "Paid",
			Options:    []string{"A", "B"},
			Type:       domain.PollTypeSingle,
			MaxChoices: 1,
			Visibility: domain.VisibilityPayToView,
		})

		now := time.Now()
		f.paymentRepo.payments = append(f.paymentRepo.payments, &domain.Payment{
			PollID:      poll.ID,
			ClientHash:  "someone-else",
			RevealToken: "reveal-xyz",
			Paid:        true,
			PaidAt:      &now,
		})

		rec := f.do(t, http.MethodGet, "/api/polls/paid1/results?reveal_token=reveal-xyz", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reveal_after_n_votes gates until threshold", func(t *testing.T) {
		f := newFixture(t, nil)
		f.addPoll(&domain.Poll{
			Slug:              "gated1",
			Title:             "Gated",
			Options:           []string{"A", "B"},
			Type:              domain.PollTypeSingle,
			MaxChoices:        1,
			Visibility:        domain.VisibilityRevealAfterN,
			RevealAfterNVotes: 2,
		})

		payload := map[string]interface{}{"selected_options": []int{0}}

		rec := f.do(t, http.MethodPost, "/api/polls/gated1/vote", payload, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/polls/gated1/results", nil, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/polls/gated1/vote", payload, map[string]string{
			"User-Agent": "second-voter",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/polls/gated1/results", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown poll", func(t *testing.T) {
		f := newFixture(t, nil)

		rec := f.do(t, http.MethodGet, "/api/polls/missing/results", nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminEndpoint(t *testing.T) {
	gatedPoll := func() *domain.Poll {
		return &domain.Poll{
			Slug:       "mine1",
			Title:      "Mine",
			Options:    []string{"A", "B"},
			Type:       domain.PollTypeSingle,
			MaxChoices: 1,
			Visibility: domain.VisibilityPublic,
			AdminToken: "admin-token",
		}
	}

	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t, nil)
		f.addPoll(gatedPoll())

		rec := f.do(t, http.MethodGet, "/api/polls/mine1/admin", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token reads as not found", func(t *testing.T) {
		f := newFixture(t, nil)
		f.addPoll(gatedPoll())

		rec := f.do(t, http.MethodGet, "/api/polls/mine1/admin?admin_token=wrong", nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("analytics payload", func(t *testing.T) {
		f := newFixture(t, nil)
		f.addPoll(gatedPoll())

		rec := f.do(t, http.MethodPost, "/api/polls/mine1/vote", map[string]interface{}{
			"selected_options": []int{1},
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/polls/mine1/admin?admin_token=admin-token", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		analytics := body["analytics"].(map[string]interface{})
		assert.Equal(t, float64(1), analytics["total_votes"])
		assert.Equal(t, float64(1), analytics["unique_voters"])
	})
}
