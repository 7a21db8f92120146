package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"go.uber.org/zap"
)

// CartStorageKey is where a session's cart lines are persisted. The total is never stored.
const CartStorageKey = "cart"

// CartAction is one of AddItem, RemoveItem, UpdateQuantity, ClearCart or LoadCart.
type CartAction interface {
	cartAction()
}

// AddItem merges Item into the line with the same product, size and color, or appends it.
type AddItem struct {
	Item     models.CartItem
	Quantity int
}

// RemoveItem drops every line of ProductID regardless of size or color.
type RemoveItem struct {
	ProductID string
}

// UpdateQuantity sets the quantity of the lines of ProductID; zero or less drops them.
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

type ClearCart struct{}

// LoadCart replaces the cart wholesale.
type LoadCart struct {
	Items []models.CartItem
}

func (AddItem) cartAction()        {}
func (RemoveItem) cartAction()     {}
func (UpdateQuantity) cartAction() {}
func (ClearCart) cartAction()      {}
func (LoadCart) cartAction()       {}

// reduceCart returns the state that results from applying action to state. It never
// modifies state.Items in place.
func reduceCart(state models.Cart, action CartAction) models.Cart {
	var items []models.CartItem

	switch a := action.(type) {
	case AddItem:
		items = models.CloneItems(state.Items)
		merged := false
		for i := range items {
			if items[i].SameLine(a.Item) {
				items[i].Quantity += a.Quantity
				merged = true
				break
			}
		}
		if !merged {
			line := a.Item
			line.Quantity = a.Quantity
			items = append(items, line)
		}

	case RemoveItem:
		items = make([]models.CartItem, 0, len(state.Items))
		for _, it := range state.Items {
			if it.ProductID != a.ProductID {
				items = append(items, it)
			}
		}

	case UpdateQuantity:
		items = make([]models.CartItem, 0, len(state.Items))
		for _, it := range state.Items {
			if it.ProductID == a.ProductID {
				it.Quantity = a.Quantity
			}
			if it.Quantity > 0 {
				items = append(items, it)
			}
		}

	case ClearCart:
		items = []models.CartItem{}

	case LoadCart:
		items = models.CloneItems(a.Items)

	default:
		panic(fmt.Sprintf("unhandled cart action %T", action))
	}

	return models.Cart{Items: items, Total: cartTotal(items)}
}

func cartTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CartStore owns one session's cart and mirrors it to durable storage after every change.
type CartStore struct {
	mu     sync.Mutex
	state  models.Cart
	kv     database.KV
	logger *zap.Logger
}

func NewCartStore(kv database.KV, logger *zap.Logger) *CartStore {
	return &CartStore{
		state:  models.Cart{Items: []models.CartItem{}, Total: decimal.Zero},
		kv:     kv,
		logger: logger,
	}
}

// Hydrate loads the persisted snapshot, if any. An unreadable snapshot is logged and the
// cart starts empty.
func (s *CartStore) Hydrate(ctx context.Context) error {
	var items []models.CartItem
	found, err := database.GetJSON(ctx, s.kv, CartStorageKey, &items)
	if err != nil {
		s.logger.Warn("discarding unreadable cart snapshot", zap.Error(err))
		found = false
	}
	if !found {
		return nil
	}
	_, err = s.Dispatch(ctx, LoadCart{Items: items})
	return err
}

// Dispatch applies action and persists the resulting lines. The in-memory state advances
// even when persisting fails; the error is returned so callers can report it.
func (s *CartStore) Dispatch(ctx context.Context, action CartAction) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = reduceCart(s.state, action)
	snapshot := cloneCart(s.state)

	if err := database.SetJSON(ctx, s.kv, CartStorageKey, s.state.Items); err != nil {
		s.logger.Error("failed to persist cart", zap.Error(err))
		return snapshot, fmt.Errorf("persist cart: %w", err)
	}
	return snapshot, nil
}

func (s *CartStore) Add(ctx context.Context, item models.CartItem, quantity int) (models.Cart, error) {
	return s.Dispatch(ctx, AddItem{Item: item, Quantity: quantity})
}

func (s *CartStore) Remove(ctx context.Context, productID string) (models.Cart, error) {
	return s.Dispatch(ctx, RemoveItem{ProductID: productID})
}

func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) (models.Cart, error) {
	return s.Dispatch(ctx, UpdateQuantity{ProductID: productID, Quantity: quantity})
}

func (s *CartStore) Clear(ctx context.Context) (models.Cart, error) {
	return s.Dispatch(ctx, ClearCart{})
}

func (s *CartStore) Load(ctx context.Context, items []models.CartItem) (models.Cart, error) {
	return s.Dispatch(ctx, LoadCart{Items: items})
}

// Snapshot returns a copy of the current cart.
func (s *CartStore) Snapshot() models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCart(s.state)
}

// ItemCount is the number of units across all lines.
func (s *CartStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.state.Items {
		n += it.Quantity
	}
	return n
}

func cloneCart(c models.Cart) models.Cart {
	return models.Cart{Items: models.CloneItems(c.Items), Total: c.Total}
}
