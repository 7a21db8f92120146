package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/payment"
	"github.com/yvetteluxe63/yvetteluxe/services"
)

// --- Mock Checkout Service ---
type MockOrderPlacer struct {
	mock.Mock
}

func (m *MockOrderPlacer) PlaceOrder(ctx context.Context, sess *services.ShopperSession, form models.CheckoutForm, key string) (*services.CheckoutResult, error) {
	args := m.Called(ctx, sess, form, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckoutResult), args.Error(1)
}

func TestCheckoutController_PlaceOrder(t *testing.T) {
	form := models.CheckoutForm{Name: "Ama", Phone: "024", Email: "ama@example.com", Address: "Accra", PaymentMethod: "momo", Network: "mtn", MomoNumber: "024"}
	order := &models.Order{ID: "o1", Total: decimal.NewFromInt(25), IsPaid: true, Status: models.OrderStatusPending, PaymentReference: "momo_1"}

	tests := []struct {
		name     string
		result   *services.CheckoutResult
		err      error
		wantCode int
		wantMsg  string
	}{
		{"Success - 201 Created", &services.CheckoutResult{State: services.CheckoutDone, Order: order}, nil, http.StatusCreated, ""},
		{"Success - replay - 200 OK", &services.CheckoutResult{State: services.CheckoutDone, Order: order, Replayed: true}, nil, http.StatusOK, ""},
		{"Failure - validation - 400", &services.CheckoutResult{State: services.CheckoutIdle},
			&services.ValidationError{Field: "address", Message: "Please fill in all required fields"}, http.StatusBadRequest, "Please fill in all required fields"},
		{"Failure - cancelled - 402", &services.CheckoutResult{State: services.CheckoutFailed}, payment.ErrPaymentCancelled, http.StatusPaymentRequired, "payment cancelled"},
		{"Failure - declined - 402", &services.CheckoutResult{State: services.CheckoutFailed}, payment.ErrPaymentDeclined, http.StatusPaymentRequired, "Payment failed"},
		{"Failure - in flight - 409", &services.CheckoutResult{State: services.CheckoutIdle}, services.ErrCheckoutInProgress, http.StatusConflict, ""},
		{"Failure - reference reused - 409", &services.CheckoutResult{State: services.CheckoutFailed}, services.ErrPaymentReferenceUsed, http.StatusConflict, "Payment reference already used"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			placer := new(MockOrderPlacer)
			h := NewCheckoutController(placer)
			env.sessionGroup("/checkout").POST("", h.PlaceOrder)

			sid := uuid.NewString()
			placer.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(s *services.ShopperSession) bool { return s.ID == sid }), form, "").
				Return(tt.result, tt.err).Once()

			rec := env.do(t, http.MethodPost, "/checkout", sid, form)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.err == nil {
				var body services.CheckoutResult
				decode(t, rec, &body)
				require.NotNil(t, body.Order)
				assert.Equal(t, "o1", body.Order.ID)
				assert.Contains(t, rec.Body.String(), `"state":"done"`)
			} else if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, errorBody(t, rec).Message)
			}
			placer.AssertExpectations(t)
		})
	}
}

func TestCheckoutController_ForwardsIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	placer := new(MockOrderPlacer)
	env.sessionGroup("/checkout").POST("", NewCheckoutController(placer).PlaceOrder)

	placer.On("PlaceOrder", mock.Anything, mock.Anything, mock.Anything, "abc-123").
		Return(&services.CheckoutResult{State: services.CheckoutDone, Order: &models.Order{ID: "o1"}}, nil).Once()

	req := newJSONRequest(t, http.MethodPost, "/checkout", models.CheckoutForm{})
	req.Header.Set("X-Session-ID", uuid.NewString())
	req.Header.Set("Idempotency-Key", " abc-123 ")
	rec := serve(env, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	placer.AssertExpectations(t)
}
