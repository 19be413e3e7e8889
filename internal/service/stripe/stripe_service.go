// Package stripe implements the payment provider against the Stripe API.
// Everything Stripe-specific stays behind service.PaymentProvider.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"pollgate/internal/service"
)

const productName = "Poll Results Access"

// Service creates Checkout sessions and verifies webhook events
type Service struct {
	webhookSecret string
	logger        *zap.Logger
}

// NewService configures the global Stripe client key and returns the provider
func NewService(secretKey, webhookSecret string, logger *zap.Logger) *Service {
	stripeapi.Key = secretKey

	return &Service{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// CreateCheckoutSession creates a one-time card payment session
func (s *Service) CreateCheckoutSession(ctx context.Context, params service.CheckoutSessionParams) (*service.CheckoutSession, error) {
	sessionParams := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency: stripeapi.String(string(stripeapi.CurrencyUSD)),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripeapi.String(productName),
						Description: stripeapi.String(fmt.Sprintf("View results for: %s", params.PollTitle)),
					},
					UnitAmount: stripeapi.Int64(params.Amount),
				},
				Quantity: stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(params.SuccessURL),
		CancelURL:  stripeapi.String(params.CancelURL),
	}
	sessionParams.Context = ctx
	for key, value := range params.Metadata {
		sessionParams.AddMetadata(key, value)
	}

	created, err := session.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}

	return &service.CheckoutSession{ID: created.ID, URL: created.URL}, nil
}

// VerifyWebhook checks the Stripe-Signature header against the shared
// secret and extracts the checkout-completed event. Other event types
// return nil: acknowledged but not consumed.
func (s *Service) VerifyWebhook(payload []byte, signature string) (*service.CheckoutCompletedEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification: %w", err)
	}

	if event.Type != stripeapi.EventTypeCheckoutSessionCompleted {
		s.logger.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		return nil, nil
	}

	var checkoutSession stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
		return nil, fmt.Errorf("webhook payload decode: %w", err)
	}

	confirmed := &service.CheckoutCompletedEvent{
		SessionID: checkoutSession.ID,
		Metadata:  checkoutSession.Metadata,
	}
	if checkoutSession.PaymentIntent != nil {
		confirmed.PaymentIntentID = checkoutSession.PaymentIntent.ID
	}

	return confirmed, nil
}
