package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/payment"
	awspkg "github.com/yvetteluxe63/yvetteluxe/pkg/aws"
	"go.uber.org/zap"
)

// CheckoutState tracks one checkout attempt.
type CheckoutState int

const (
	CheckoutIdle CheckoutState = iota
	CheckoutValidating
	CheckoutAwaitingPayment
	CheckoutFinalizing
	CheckoutDone
	CheckoutFailed
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutIdle:
		return "idle"
	case CheckoutValidating:
		return "validating"
	case CheckoutAwaitingPayment:
		return "awaiting_payment"
	case CheckoutFinalizing:
		return "finalizing"
	case CheckoutDone:
		return "done"
	case CheckoutFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s CheckoutState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CheckoutState) UnmarshalText(text []byte) error {
	for st := CheckoutIdle; st <= CheckoutFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown checkout state %q", text)
}

const (
	msgRequiredFields = "Please fill in all required fields"
	msgMomoDetails    = "Please provide mobile money details"
	idempotencyPrefix = "idem:checkout:"
	paymentRefPrefix  = "payref:"
)

var (
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrGatewayUnavailable = errors.New("payment gateway not configured")
	// ErrPaymentReferenceUsed means the gateway reference already paid for another order.
	ErrPaymentReferenceUsed = errors.New("payment reference already used")
)

// ValidationError is a checkout form problem tied to one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CheckoutResult reports where an attempt ended and, when it reached Done, the placed order.
type CheckoutResult struct {
	State    CheckoutState `json:"state"`
	Order    *models.Order `json:"order,omitempty"`
	Replayed bool          `json:"replayed,omitempty"`
}

// OrderLedger is the part of AdminCatalog checkout writes to.
type OrderLedger interface {
	AppendOrder(ctx context.Context, order models.Order) error
	Order(id string) (models.Order, bool)
	Currency() string
}

// OrderDispatcher sends the post-order notifications without blocking.
type OrderDispatcher interface {
	DispatchOrder(order models.Order)
}

// OrderEventPublisher is satisfied by events.Producer.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error
}

type CheckoutService struct {
	ledger    OrderLedger
	gateway   payment.Gateway
	notifier  OrderDispatcher
	events    OrderEventPublisher
	metrics   MetricsRecorder
	idem      database.KV
	idemTTL   time.Duration
	claims    database.Claimer
	momoDelay time.Duration
	logger    *zap.Logger

	now   func() time.Time
	sleep func(time.Duration)

	wg sync.WaitGroup
}

type CheckoutOption func(*CheckoutService)

func WithOrderEvents(p OrderEventPublisher) CheckoutOption {
	return func(s *CheckoutService) { s.events = p }
}

func WithCheckoutMetrics(m MetricsRecorder) CheckoutOption {
	return func(s *CheckoutService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithIdempotencyStore enables Idempotency-Key replay using kv. Keys expire after ttl when
// kv supports expiry; a zero ttl keeps them forever.
func WithIdempotencyStore(kv database.KV, ttl time.Duration) CheckoutOption {
	return func(s *CheckoutService) {
		s.idem = kv
		s.idemTTL = ttl
	}
}

// WithPaymentClaims records spent gateway references in c so they are shared across
// instances. Without it references are tracked in process memory.
func WithPaymentClaims(c database.Claimer) CheckoutOption {
	return func(s *CheckoutService) {
		if c != nil {
			s.claims = c
		}
	}
}

func WithClock(now func() time.Time, sleep func(time.Duration)) CheckoutOption {
	return func(s *CheckoutService) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func NewCheckoutService(ledger OrderLedger, gateway payment.Gateway, notifier OrderDispatcher, momoDelay time.Duration, logger *zap.Logger, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		ledger:    ledger,
		gateway:   gateway,
		notifier:  notifier,
		metrics:   noopMetrics{},
		claims:    database.NewMemoryKV(),
		momoDelay: momoDelay,
		logger:    logger,
		now:       time.Now,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder runs one checkout attempt for sess. An order is appended to the ledger only
// after the payment path reports success, and at most once per attempt.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sess *ShopperSession, form models.CheckoutForm, idempotencyKey string) (*CheckoutResult, error) {
	result := &CheckoutResult{State: CheckoutIdle}
	form.Normalize()
	log := s.logger.With(zap.String("session_id", sess.ID))

	if order, ok := s.replay(ctx, sess.ID, idempotencyKey); ok {
		result.State = CheckoutDone
		result.Order = &order
		result.Replayed = true
		return result, nil
	}

	if !sess.beginCheckout() {
		return result, ErrCheckoutInProgress
	}
	defer sess.endCheckout()

	result.State = CheckoutValidating
	if err := ValidateCheckoutForm(&form); err != nil {
		result.State = CheckoutIdle
		s.recordCount(awspkg.MetricCheckoutValidation, nil)
		return result, err
	}
	cart := sess.Cart.Snapshot()
	if len(cart.Items) == 0 {
		result.State = CheckoutIdle
		return result, &ValidationError{Field: "cart", Message: "Your cart is empty"}
	}

	s.recordCount(awspkg.MetricCheckoutStarted, map[string]string{"Method": form.PaymentMethod})
	currency := s.ledger.Currency()
	started := s.now()

	result.State = CheckoutAwaitingPayment
	reference, err := s.collectPayment(ctx, form, cart.Total, currency)
	if err != nil {
		result.State = CheckoutFailed
		if errors.Is(err, payment.ErrPaymentCancelled) {
			log.Info("payment cancelled")
			s.recordCount(awspkg.MetricPaymentCancelled, nil)
		} else {
			log.Warn("payment failed", zap.Error(err))
			s.recordCount(awspkg.MetricPaymentFailed, nil)
		}
		return result, err
	}
	if form.PaymentMethod == models.PaymentMethodGateway {
		if err := s.claimReference(ctx, sess.ID, reference); err != nil {
			result.State = CheckoutFailed
			log.Warn("payment reference rejected", zap.String("reference", reference), zap.Error(err))
			s.recordCount(awspkg.MetricPaymentFailed, nil)
			return result, err
		}
	}

	// Payment has been taken; nothing below may be abandoned because the client went away.
	result.State = CheckoutFinalizing
	fctx := context.WithoutCancel(ctx)

	order := models.Order{
		ID:               uuid.NewString(),
		CustomerName:     form.Name,
		CustomerPhone:    form.Phone,
		CustomerEmail:    form.Email,
		CustomerAddress:  form.Address,
		Items:            cart.Items,
		Total:            cart.Total,
		Currency:         currency,
		PaymentMethod:    form.PaymentMethod,
		PaymentReference: reference,
		IsPaid:           true,
		Status:           models.OrderStatusPending,
		CreatedAt:        s.now().UTC(),
	}
	if form.PaymentMethod == models.PaymentMethodMobileMoney {
		order.Network = form.Network
		order.MomoNumber = form.MomoNumber
	}

	if err := s.ledger.AppendOrder(fctx, order); err != nil {
		log.Error("order kept in memory but not persisted", zap.String("order_id", order.ID), zap.Error(err))
	}
	s.remember(fctx, sess.ID, idempotencyKey, order.ID)

	s.notifier.DispatchOrder(order.Clone())
	s.publish(sess.ID, order)

	if _, err := sess.Cart.Clear(fctx); err != nil {
		log.Error("failed to clear cart after order", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.recordOrderMetrics(order.PaymentMethod, s.now().Sub(started))
	log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("reference", reference),
		zap.String("total", order.Total.StringFixed(2)),
	)

	result.State = CheckoutDone
	result.Order = &order
	return result, nil
}

func (s *CheckoutService) collectPayment(ctx context.Context, form models.CheckoutForm, total decimal.Decimal, currency string) (string, error) {
	switch form.PaymentMethod {
	case models.PaymentMethodMobileMoney:
		// Placeholder rail: always succeeds after the delay, which is not cancellable.
		s.sleep(s.momoDelay)
		return fmt.Sprintf("momo_%d", s.now().UnixMilli()), nil

	default:
		if s.gateway == nil {
			return "", ErrGatewayUnavailable
		}
		return s.gateway.StartTransaction(ctx, models.TransactionRequest{
			AmountMinorUnits: MinorUnits(total),
			Currency:         currency,
			Email:            form.Email,
			Token:            form.PaymentToken,
		})
	}
}

// claimReference marks a gateway reference as spent. A reference the provider keeps
// reporting as paid can back only one order.
func (s *CheckoutService) claimReference(ctx context.Context, sessionID, reference string) error {
	won, err := s.claims.SetNX(ctx, paymentRefPrefix+reference, sessionID, 0)
	if err != nil {
		return fmt.Errorf("claim payment reference: %w", err)
	}
	if !won {
		return ErrPaymentReferenceUsed
	}
	return nil
}

func idempotencyKeyFor(sessionID, key string) string {
	return idempotencyPrefix + sessionID + ":" + key
}

func (s *CheckoutService) replay(ctx context.Context, sessionID, key string) (models.Order, bool) {
	if key == "" || s.idem == nil {
		return models.Order{}, false
	}
	orderID, ok, err := s.idem.Get(ctx, idempotencyKeyFor(sessionID, key))
	if err != nil {
		s.logger.Warn("idempotency lookup failed", zap.Error(err))
		return models.Order{}, false
	}
	if !ok {
		return models.Order{}, false
	}
	return s.ledger.Order(orderID)
}

func (s *CheckoutService) remember(ctx context.Context, sessionID, key, orderID string) {
	if key == "" || s.idem == nil {
		return
	}
	k := idempotencyKeyFor(sessionID, key)
	var err error
	if s.idemTTL > 0 {
		_, err = database.SetNX(ctx, s.idem, k, orderID, s.idemTTL)
		if errors.Is(err, database.ErrClaimUnsupported) {
			err = s.idem.Set(ctx, k, orderID)
		}
	} else {
		err = s.idem.Set(ctx, k, orderID)
	}
	if err != nil {
		s.logger.Warn("failed to store idempotency key", zap.Error(err))
	}
}

func (s *CheckoutService) publish(sessionID string, order models.Order) {
	if s.events == nil {
		return
	}
	event := models.OrderPlacedEvent{
		OrderID:   order.ID,
		SessionID: sessionID,
		Email:     order.CustomerEmail,
		Total:     order.Total,
		Currency:  order.Currency,
		Method:    order.PaymentMethod,
		Reference: order.PaymentReference,
		ItemCount: len(order.Items),
		Timestamp: order.CreatedAt,
	}
	s.background(func(ctx context.Context) {
		if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
			s.logger.Error("failed to publish order event", zap.String("order_id", order.ID), zap.Error(err))
		}
	})
}

// recordCount sends one metric in the background so CloudWatch latency stays off the
// request path.
func (s *CheckoutService) recordCount(name string, dims map[string]string) {
	s.background(func(ctx context.Context) {
		_ = s.metrics.RecordCount(ctx, name, dims)
	})
}

func (s *CheckoutService) recordOrderMetrics(method string, latency time.Duration) {
	s.background(func(ctx context.Context) {
		_ = s.metrics.RecordCount(ctx, awspkg.MetricPaymentSucceeded, map[string]string{"Method": method})
		_ = s.metrics.RecordCount(ctx, awspkg.MetricOrdersCreated, nil)
		_ = s.metrics.RecordLatency(ctx, awspkg.MetricCheckoutLatency, latency, nil)
	})
}

func (s *CheckoutService) background(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until background event publishing and metric sends have finished.
func (s *CheckoutService) Wait() {
	s.wg.Wait()
}

// ValidateCheckoutForm checks the required contact fields and the mobile money details.
// An empty payment method selects mobile money.
func ValidateCheckoutForm(form *models.CheckoutForm) error {
	required := []struct {
		field string
		value string
	}{
		{"name", form.Name},
		{"phone", form.Phone},
		{"email", form.Email},
		{"address", form.Address},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Message: msgRequiredFields}
		}
	}

	if form.PaymentMethod == "" {
		form.PaymentMethod = models.PaymentMethodMobileMoney
	}
	switch form.PaymentMethod {
	case models.PaymentMethodGateway:
	case models.PaymentMethodMobileMoney:
		if form.Network == "" {
			return &ValidationError{Field: "network", Message: msgMomoDetails}
		}
		if form.MomoNumber == "" {
			return &ValidationError{Field: "momo_number", Message: msgMomoDetails}
		}
	default:
		return &ValidationError{Field: "payment_method", Message: "Unsupported payment method"}
	}
	return nil
}

// MinorUnits converts an amount to the smallest currency unit (x100), rounding half away
// from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
