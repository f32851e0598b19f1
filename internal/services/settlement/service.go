// Package settlement is the payment-provider collaborator. The core invokes
// it exactly once per order on the demo checkout path; production traffic
// confirms asynchronously through the payment webhook instead.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
)

// ErrPaymentDeclined is returned when the provider refuses the charge.
var ErrPaymentDeclined = errors.New("payment declined")

// Service settles an order amount with the payment provider and returns an
// external settlement reference.
type Service interface {
	Confirm(ctx context.Context, orderID string, amountCents int64) (string, error)
}

type stripeService struct{}

// NewService creates the Stripe-backed settlement service. The secret key
// comes from the STRIPE_SECRET_KEY environment variable, set at startup.
func NewService(secretKey string) Service {
	stripe.Key = secretKey
	return &stripeService{}
}

func (s *stripeService) Confirm(_ context.Context, orderID string, amountCents int64) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(string(stripe.CurrencyUSD)),
		Confirm:       stripe.Bool(true),
		PaymentMethod: stripe.String("pm_card_visa"),
	}
	params.AddMetadata("order_id", orderID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe settlement failed: %w", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return "", ErrPaymentDeclined
	}
	return intent.ID, nil
}
