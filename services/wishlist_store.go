package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"go.uber.org/zap"
)

const WishlistStorageKey = "wishlist"

type WishlistAction interface {
	wishlistAction()
}

type WishlistAdd struct{ Item models.WishlistItem }
type WishlistRemove struct{ ProductID string }
type WishlistClear struct{}
type WishlistLoad struct{ Items []models.WishlistItem }

func (WishlistAdd) wishlistAction()    {}
func (WishlistRemove) wishlistAction() {}
func (WishlistClear) wishlistAction()  {}
func (WishlistLoad) wishlistAction()   {}

func reduceWishlist(items []models.WishlistItem, action WishlistAction) []models.WishlistItem {
	switch a := action.(type) {
	case WishlistAdd:
		for _, it := range items {
			if it.ProductID == a.Item.ProductID {
				return cloneWishlist(items)
			}
		}
		return append(cloneWishlist(items), a.Item)

	case WishlistRemove:
		out := make([]models.WishlistItem, 0, len(items))
		for _, it := range items {
			if it.ProductID != a.ProductID {
				out = append(out, it)
			}
		}
		return out

	case WishlistClear:
		return []models.WishlistItem{}

	case WishlistLoad:
		return cloneWishlist(a.Items)

	default:
		panic(fmt.Sprintf("unhandled wishlist action %T", action))
	}
}

// WishlistStore owns one session's saved items.
type WishlistStore struct {
	mu     sync.Mutex
	items  []models.WishlistItem
	kv     database.KV
	logger *zap.Logger
}

func NewWishlistStore(kv database.KV, logger *zap.Logger) *WishlistStore {
	return &WishlistStore{items: []models.WishlistItem{}, kv: kv, logger: logger}
}

func (s *WishlistStore) Hydrate(ctx context.Context) error {
	var items []models.WishlistItem
	found, err := database.GetJSON(ctx, s.kv, WishlistStorageKey, &items)
	if err != nil {
		s.logger.Warn("discarding unreadable wishlist snapshot", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}
	_, err = s.Dispatch(ctx, WishlistLoad{Items: items})
	return err
}

func (s *WishlistStore) Dispatch(ctx context.Context, action WishlistAction) ([]models.WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = reduceWishlist(s.items, action)
	snapshot := cloneWishlist(s.items)

	if err := database.SetJSON(ctx, s.kv, WishlistStorageKey, s.items); err != nil {
		s.logger.Error("failed to persist wishlist", zap.Error(err))
		return snapshot, fmt.Errorf("persist wishlist: %w", err)
	}
	return snapshot, nil
}

func (s *WishlistStore) Add(ctx context.Context, item models.WishlistItem) ([]models.WishlistItem, error) {
	return s.Dispatch(ctx, WishlistAdd{Item: item})
}

// AddProduct saves a product summary, applying the conversion defaults.
func (s *WishlistStore) AddProduct(ctx context.Context, p models.ProductSummary) ([]models.WishlistItem, error) {
	return s.Add(ctx, p.WishlistItem())
}

func (s *WishlistStore) Remove(ctx context.Context, productID string) ([]models.WishlistItem, error) {
	return s.Dispatch(ctx, WishlistRemove{ProductID: productID})
}

func (s *WishlistStore) Clear(ctx context.Context) ([]models.WishlistItem, error) {
	return s.Dispatch(ctx, WishlistClear{})
}

func (s *WishlistStore) Load(ctx context.Context, items []models.WishlistItem) ([]models.WishlistItem, error) {
	return s.Dispatch(ctx, WishlistLoad{Items: items})
}

func (s *WishlistStore) Items() []models.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneWishlist(s.items)
}

func (s *WishlistStore) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

func cloneWishlist(items []models.WishlistItem) []models.WishlistItem {
	out := make([]models.WishlistItem, len(items))
	copy(out, items)
	return out
}
