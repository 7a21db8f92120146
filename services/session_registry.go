package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/repository"
	"go.uber.org/zap"
)

var ErrInvalidSessionID = errors.New("session id must be a UUID")

// ShopperSession owns the state containers of one shopper.
type ShopperSession struct {
	ID       string
	Cart     *CartStore
	Wishlist *WishlistStore
	Admin    *AdminGate
	Auth     *AuthSessionMirror

	checkoutBusy atomic.Bool
	lastSeen     atomic.Int64
}

func (s *ShopperSession) beginCheckout() bool {
	return s.checkoutBusy.CompareAndSwap(false, true)
}

func (s *ShopperSession) endCheckout() {
	s.checkoutBusy.Store(false)
}

func (s *ShopperSession) touch(t time.Time) {
	s.lastSeen.Store(t.UnixNano())
}

// SessionRegistry hydrates shopper sessions from the KV store on first use and evicts idle
// ones. Evicted sessions lose nothing: every mutation is already persisted.
type SessionRegistry struct {
	kv            database.KV
	auth          AuthProvider
	profiles      repository.ProfileRepository
	adminPassword string
	logger        *zap.Logger
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*ShopperSession
}

func NewSessionRegistry(kv database.KV, auth AuthProvider, profiles repository.ProfileRepository, adminPassword string, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		kv:            kv,
		auth:          auth,
		profiles:      profiles,
		adminPassword: adminPassword,
		logger:        logger,
		now:           time.Now,
		sessions:      make(map[string]*ShopperSession),
	}
}

// NewSessionID returns a fresh id for a shopper that did not send one.
func NewSessionID() string {
	return uuid.NewString()
}

// Get returns the session for id, hydrating it on first use.
func (r *SessionRegistry) Get(ctx context.Context, id string) (*ShopperSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidSessionID
	}

	// Touch under the lock so Sweep never evicts a session a caller is about to use.
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		sess.touch(r.now())
	}
	r.mu.Unlock()
	if ok {
		return sess, nil
	}

	fresh, err := r.hydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.sessions[id]; ok {
		existing.touch(r.now())
		r.mu.Unlock()
		fresh.Auth.Close()
		return existing, nil
	}
	fresh.touch(r.now())
	r.sessions[id] = fresh
	r.mu.Unlock()
	return fresh, nil
}

func (r *SessionRegistry) hydrate(ctx context.Context, id string) (*ShopperSession, error) {
	kv := database.SessionKV(r.kv, id)
	log := r.logger.With(zap.String("session_id", id))

	sess := &ShopperSession{
		ID:       id,
		Cart:     NewCartStore(kv, log),
		Wishlist: NewWishlistStore(kv, log),
		Admin:    NewAdminGate(r.adminPassword, kv, log),
		Auth:     NewAuthSessionMirror(id, r.auth, r.profiles, log),
	}
	if err := sess.Cart.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrate cart: %w", err)
	}
	if err := sess.Wishlist.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrate wishlist: %w", err)
	}
	if err := sess.Admin.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrate admin gate: %w", err)
	}
	sess.Auth.Start(ctx)
	sess.touch(r.now())
	return sess, nil
}

// Len reports how many sessions are resident.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than idle and returns how many were removed.
// Sessions with a checkout in flight are kept.
func (r *SessionRegistry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle).UnixNano()
	var evicted []*ShopperSession

	r.mu.Lock()
	for id, sess := range r.sessions {
		if sess.lastSeen.Load() < cutoff && !sess.checkoutBusy.Load() {
			delete(r.sessions, id)
			evicted = append(evicted, sess)
		}
	}
	r.mu.Unlock()

	for _, sess := range evicted {
		sess.Auth.Close()
	}
	return len(evicted)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *SessionRegistry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.Debug("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close releases every resident session.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*ShopperSession)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Auth.Close()
	}
}
