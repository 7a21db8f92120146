package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/yvetteluxe63/yvetteluxe/models"
)

type mockIntents struct {
	mock.Mock
}

func (m *mockIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(params)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func TestStripeGateway_Succeeded(t *testing.T) {
	intents := &mockIntents{}
	intents.On("New", mock.MatchedBy(func(p *stripe.PaymentIntentParams) bool {
		return *p.Amount == 2500 && *p.Currency == "ghs" && *p.PaymentMethod == "pm_card" && *p.Confirm
	})).Return(&stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusSucceeded}, nil)

	ref, err := NewStripeGatewayWithClient(intents).StartTransaction(context.Background(), models.TransactionRequest{
		AmountMinorUnits: 2500, Currency: "GHS", Email: "a@b.c", Token: "pm_card",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", ref)
	intents.AssertExpectations(t)
}

func TestStripeGateway_StatusMapping(t *testing.T) {
	cases := []struct {
		status stripe.PaymentIntentStatus
		want   error
	}{
		{stripe.PaymentIntentStatusCanceled, ErrPaymentCancelled},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, ErrPaymentDeclined},
		{stripe.PaymentIntentStatusRequiresAction, ErrPaymentIncomplete},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			intents := &mockIntents{}
			intents.On("New", mock.Anything).Return(&stripe.PaymentIntent{ID: "pi", Status: tc.status}, nil)

			_, err := NewStripeGatewayWithClient(intents).StartTransaction(context.Background(), models.TransactionRequest{
				AmountMinorUnits: 100, Currency: "usd", Token: "pm",
			})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStripeGateway_CardError(t *testing.T) {
	intents := &mockIntents{}
	intents.On("New", mock.Anything).Return(nil, &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card was declined."})

	_, err := NewStripeGatewayWithClient(intents).StartTransaction(context.Background(), models.TransactionRequest{Token: "pm"})
	assert.ErrorIs(t, err, ErrPaymentDeclined)
}

func TestStripeGateway_MissingToken(t *testing.T) {
	_, err := NewStripeGatewayWithClient(&mockIntents{}).StartTransaction(context.Background(), models.TransactionRequest{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func newPaystack(t *testing.T, handler http.HandlerFunc) *PaystackGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	gw, err := NewPaystackGateway(srv.URL, "sk_test")
	require.NoError(t, err)
	return gw
}

func TestPaystackGateway_Success(t *testing.T) {
	gw := newPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref_1", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"status":"success","reference":"ref_1","amount":2500,"currency":"GHS"}}`))
	})

	ref, err := gw.StartTransaction(context.Background(), models.TransactionRequest{AmountMinorUnits: 2500, Currency: "GHS", Token: "ref_1"})
	require.NoError(t, err)
	assert.Equal(t, "ref_1", ref)
}

func TestPaystackGateway_Abandoned(t *testing.T) {
	gw := newPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"status":"abandoned","reference":"ref_2","amount":2500,"currency":"GHS"}}`))
	})

	_, err := gw.StartTransaction(context.Background(), models.TransactionRequest{AmountMinorUnits: 2500, Currency: "GHS", Token: "ref_2"})
	assert.ErrorIs(t, err, ErrPaymentCancelled)
}

func TestPaystackGateway_AmountMismatch(t *testing.T) {
	gw := newPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"status":"success","reference":"ref_3","amount":100,"currency":"GHS"}}`))
	})

	_, err := gw.StartTransaction(context.Background(), models.TransactionRequest{AmountMinorUnits: 2500, Currency: "GHS", Token: "ref_3"})
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestPaystackGateway_NotFound(t *testing.T) {
	gw := newPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	})

	_, err := gw.StartTransaction(context.Background(), models.TransactionRequest{Token: "nope"})
	assert.True(t, errors.Is(err, ErrPaymentDeclined))
}
