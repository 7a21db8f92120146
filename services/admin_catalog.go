package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/repository"
	"go.uber.org/zap"
)

const (
	OrdersStorageKey   = "orders"
	CurrencyStorageKey = "currency"
	DefaultCurrency    = "GHS"
	productImagePrefix = "products"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidCurrency    = errors.New("currency must be a 3-letter code")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrPresignUnsupported = errors.New("object storage cannot presign uploads")
	ErrNoObjectStorage    = errors.New("object storage is not configured")
)

// ObjectStorage stores uploaded product images.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	PublicURL(key string) string
}

// AdminCatalog mirrors the remote product list and owns the order ledger and display
// currency. Products are never edited locally: every write goes to the repository and is
// followed by a full refetch.
type AdminCatalog struct {
	mu       sync.RWMutex
	products []models.Product
	orders   []models.Order
	currency string
	loading  atomic.Int32

	repo     repository.ProductRepository
	storage  ObjectStorage
	kv       database.KV
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	listenersMu sync.RWMutex
	listeners   []func(models.Order)
}

func NewAdminCatalog(repo repository.ProductRepository, storage ObjectStorage, kv database.KV, defaultCurrency string, logger *zap.Logger) *AdminCatalog {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	return &AdminCatalog{
		products: []models.Product{},
		orders:   []models.Order{},
		currency: defaultCurrency,
		repo:     repo,
		storage:  storage,
		kv:       kv,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Hydrate restores the ledger and currency from durable storage.
func (a *AdminCatalog) Hydrate(ctx context.Context) error {
	var orders []models.Order
	if _, err := database.GetJSON(ctx, a.kv, OrdersStorageKey, &orders); err != nil {
		a.logger.Warn("discarding unreadable order ledger", zap.Error(err))
		orders = nil
	}

	currency, ok, err := a.kv.Get(ctx, CurrencyStorageKey)
	if err != nil {
		return fmt.Errorf("load currency: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if orders != nil {
		a.orders = orders
	}
	if ok && currency != "" {
		a.currency = currency
	}
	return nil
}

// FetchAll replaces the product mirror with the remote listing. On failure the previous
// mirror is kept.
func (a *AdminCatalog) FetchAll(ctx context.Context) error {
	a.loading.Add(1)
	defer a.loading.Add(-1)

	products, err := a.repo.List(ctx)
	if err != nil {
		a.logger.Error("failed to fetch products", zap.Error(err))
		return err
	}
	if products == nil {
		products = []models.Product{}
	}

	a.mu.Lock()
	a.products = products
	a.mu.Unlock()
	return nil
}

// Loading reports whether a fetch is in flight.
func (a *AdminCatalog) Loading() bool {
	return a.loading.Load() > 0
}

// Products returns a copy of the mirror, newest first.
func (a *AdminCatalog) Products() []models.Product {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Product, len(a.products))
	copy(out, a.products)
	return out
}

// Product looks a product up in the mirror.
func (a *AdminCatalog) Product(id string) (models.Product, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, p := range a.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// resync refetches after a successful write. A failed refetch is logged only: the write
// itself has already succeeded.
func (a *AdminCatalog) resync(ctx context.Context) {
	_ = a.FetchAll(ctx)
}

func (a *AdminCatalog) Create(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if err := a.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}

	product := &models.Product{
		Name:        in.Name,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		Description: in.Description,
		Category:    in.Category,
		Featured:    in.Featured,
		Sizes:       in.Sizes,
		Colors:      in.Colors,
	}
	if err := a.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	a.resync(ctx)
	return product, nil
}

func (a *AdminCatalog) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	if err := a.validate.Struct(patch); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if err := a.repo.Update(ctx, id, patch); err != nil {
		return err
	}
	a.resync(ctx)
	return nil
}

func (a *AdminCatalog) Delete(ctx context.Context, id string) error {
	if err := a.repo.Delete(ctx, id); err != nil {
		return err
	}
	a.resync(ctx)
	return nil
}

// ImageKey is the object key for a new product image: products/<unix millis>.<ext>.
func (a *AdminCatalog) ImageKey(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", productImagePrefix, a.now().UnixMilli(), ext)
}

// UploadImage stores an image under ImageKey and returns its public URL.
func (a *AdminCatalog) UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if a.storage == nil {
		return "", ErrNoObjectStorage
	}
	key := a.ImageKey(filename)
	if err := a.storage.Upload(ctx, key, body, contentType); err != nil {
		a.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return a.storage.PublicURL(key), nil
}

// PresignedUpload lets the dashboard PUT an image straight to object storage.
type PresignedUpload struct {
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Key       string            `json:"key"`
	PublicURL string            `json:"public_url"`
	ExpiresIn int64             `json:"expires_in"`
}

// Presigner is implemented by object stores that can sign direct uploads.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, map[string]string, error)
}

func (a *AdminCatalog) PresignImage(ctx context.Context, filename, contentType string, expiry time.Duration) (*PresignedUpload, error) {
	presigner, ok := a.storage.(Presigner)
	if !ok {
		return nil, ErrPresignUnsupported
	}
	key := a.ImageKey(filename)
	url, headers, err := presigner.PresignPut(ctx, key, contentType, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &PresignedUpload{
		UploadURL: url,
		Method:    "PUT",
		Headers:   headers,
		Key:       key,
		PublicURL: a.storage.PublicURL(key),
		ExpiresIn: int64(expiry.Seconds()),
	}, nil
}

// AppendOrder adds order to the end of the ledger and persists the ledger. The in-memory
// ledger keeps the order even if persisting fails.
func (a *AdminCatalog) AppendOrder(ctx context.Context, order models.Order) error {
	a.mu.Lock()
	a.orders = append(a.orders, order.Clone())
	err := database.SetJSON(ctx, a.kv, OrdersStorageKey, a.orders)
	a.mu.Unlock()

	a.notifyOrderAppended(order.Clone())

	if err != nil {
		a.logger.Error("failed to persist order ledger", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("persist orders: %w", err)
	}
	return nil
}

// MarkFulfilled moves a pending order to fulfilled. Calling it again is a no-op.
func (a *AdminCatalog) MarkFulfilled(ctx context.Context, id string) (models.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.orders {
		if a.orders[i].ID != id {
			continue
		}
		if a.orders[i].Status == models.OrderStatusFulfilled {
			return a.orders[i].Clone(), nil
		}
		a.orders[i].Status = models.OrderStatusFulfilled
		if err := database.SetJSON(ctx, a.kv, OrdersStorageKey, a.orders); err != nil {
			a.logger.Error("failed to persist order ledger", zap.String("order_id", id), zap.Error(err))
			return a.orders[i].Clone(), fmt.Errorf("persist orders: %w", err)
		}
		return a.orders[i].Clone(), nil
	}
	return models.Order{}, ErrOrderNotFound
}

// Orders returns a copy of the ledger in placement order.
func (a *AdminCatalog) Orders() []models.Order {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Order, len(a.orders))
	for i, o := range a.orders {
		out[i] = o.Clone()
	}
	return out
}

func (a *AdminCatalog) Order(id string) (models.Order, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, o := range a.orders {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return models.Order{}, false
}

func (a *AdminCatalog) OrderStats() models.OrderStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	stats := models.OrderStats{Total: len(a.orders)}
	for _, o := range a.orders {
		switch o.Status {
		case models.OrderStatusPending:
			stats.Pending++
		case models.OrderStatusFulfilled:
			stats.Fulfilled++
		}
		if o.IsPaid {
			stats.Paid++
		}
	}
	return stats
}

// Currency is the display currency. It only affects how amounts are labelled.
func (a *AdminCatalog) Currency() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currency
}

func (a *AdminCatalog) SetCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCurrency
		}
	}

	a.mu.Lock()
	a.currency = code
	a.mu.Unlock()

	if err := a.kv.Set(ctx, CurrencyStorageKey, code); err != nil {
		a.logger.Error("failed to persist currency", zap.Error(err))
		return fmt.Errorf("persist currency: %w", err)
	}
	return nil
}

// OnOrderAppended registers fn to be called after every ledger append.
func (a *AdminCatalog) OnOrderAppended(fn func(models.Order)) {
	a.listenersMu.Lock()
	a.listeners = append(a.listeners, fn)
	a.listenersMu.Unlock()
}

func (a *AdminCatalog) notifyOrderAppended(order models.Order) {
	a.listenersMu.RLock()
	listeners := append([]func(models.Order){}, a.listeners...)
	a.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(order)
	}
}
