package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pollgate/internal/identity"
	"pollgate/internal/ratelimit"
	"pollgate/internal/service"
	"pollgate/pkg/errors"
	"pollgate/pkg/logger"
)

// Webhook payloads are small; this bound keeps a hostile sender from
// holding the body reader open indefinitely.
const maxWebhookBodyBytes = 65536

type PaymentHandler struct {
	paymentService *service.PaymentService
	provider       service.PaymentProvider
	limiters       *ratelimit.Set
	logger         *logger.Logger
}

func NewPaymentHandler(
	paymentService *service.PaymentService,
	provider service.PaymentProvider,
	limiters *ratelimit.Set,
	log *logger.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		provider:       provider,
		limiters:       limiters,
		logger:         log,
	}
}

// CreateCheckout handles POST /api/polls/{slug}/checkout
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id := identity.FromRequest(r)

	if !h.limiters.Checkout.Allow(ratelimit.CheckoutKey(id.IP, id.Hash)) {
		respondError(w, r, h.logger, errors.NewRateLimitError("too many checkout attempts, please try again later"))
		return
	}

	response, err := h.paymentService.CreateCheckout(r.Context(), slug, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// Status handles GET /api/polls/{slug}/payment-status
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id := identity.FromRequest(r)

	response, err := h.paymentService.GetPaymentStatus(r.Context(), slug, id.Hash)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// Webhook handles POST /api/webhook/stripe. The raw body is needed for
// signature verification, so it is read before any decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		respondError(w, r, h.logger, errors.NewValidationError("failed to read webhook body", nil))
		return
	}

	event, err := h.provider.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WithError(err).Warn("webhook signature verification failed")
		respondError(w, r, h.logger, errors.NewUnauthorizedError("invalid webhook signature"))
		return
	}

	// Event types the service does not consume are acknowledged so the
	// provider stops redelivering them.
	if event == nil {
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := h.paymentService.ConfirmCheckout(r.Context(), event); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
