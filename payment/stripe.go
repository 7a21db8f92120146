package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/yvetteluxe63/yvetteluxe/models"
)

// IntentCreator is satisfied by *paymentintent.Client.
type IntentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway confirms a PaymentIntent against the payment method id the client collected.
type StripeGateway struct {
	intents IntentCreator
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{
		intents: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

func NewStripeGatewayWithClient(intents IntentCreator) *StripeGateway {
	return &StripeGateway{intents: intents}
}

func (s *StripeGateway) Name() string { return "stripe" }

func (s *StripeGateway) StartTransaction(ctx context.Context, req models.TransactionRequest) (string, error) {
	if req.Token == "" {
		return "", ErrMissingToken
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountMinorUnits),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.Token),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	pi, err := s.intents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return "", fmt.Errorf("%w: %s", ErrPaymentDeclined, se.Msg)
		}
		return "", fmt.Errorf("stripe: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return pi.ID, nil
	case stripe.PaymentIntentStatusCanceled:
		return "", ErrPaymentCancelled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return "", ErrPaymentDeclined
	default:
		return "", fmt.Errorf("%w: status %s", ErrPaymentIncomplete, pi.Status)
	}
}
