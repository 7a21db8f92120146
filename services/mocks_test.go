package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

// --- Mock Product Repository ---
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Gateway ---
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) StartTransaction(ctx context.Context, req models.TransactionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Name() string { return "mock" }

// --- Mock Ledger ---
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AppendOrder(ctx context.Context, order models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockLedger) Order(id string) (models.Order, bool) {
	args := m.Called(id)
	return args.Get(0).(models.Order), args.Bool(1)
}

func (m *MockLedger) Currency() string {
	args := m.Called()
	return args.String(0)
}

// --- Mock Relay ---
type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) Send(ctx context.Context, recipient, subject string, fields map[string]string) error {
	args := m.Called(ctx, recipient, subject, fields)
	return args.Error(0)
}

// --- Fakes ---

// recordingDispatcher captures dispatched orders synchronously.
type recordingDispatcher struct {
	mu     sync.Mutex
	orders []models.Order
}

func (d *recordingDispatcher) DispatchOrder(order models.Order) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.orders = append(d.orders, order)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.orders)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.OrderPlacedEvent
	err    error
}

func (r *recordingEvents) PublishOrderPlaced(_ context.Context, ev models.OrderPlacedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type fakeStorage struct {
	keys []string
	err  error
}

func (f *fakeStorage) Upload(_ context.Context, key string, body io.Reader, _ string) error {
	if f.err != nil {
		return f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.example.com/product-images/" + key
}

// failingKV reads from an underlying memory store but refuses writes.
type failingKV struct {
	*database.MemoryKV
}

func (failingKV) Set(context.Context, string, string) error { return errBoom }

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (c *countingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name]++
	return nil
}

func (c *countingMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

func (c *countingMetrics) get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zap.NewNop()
}
