package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"github.com/yvetteluxe63/yvetteluxe/database"
	"go.uber.org/zap"
)

const AdminAuthStorageKey = "adminAuth"

var ErrWrongAdminPassword = errors.New("invalid admin password")

// AdminGate is the per-session admin console switch. It is a convenience gate for the
// dashboard, not an authorization mechanism.
type AdminGate struct {
	mu            sync.RWMutex
	authenticated bool
	password      string
	kv            database.KV
	logger        *zap.Logger
}

func NewAdminGate(password string, kv database.KV, logger *zap.Logger) *AdminGate {
	return &AdminGate{password: password, kv: kv, logger: logger}
}

func (g *AdminGate) Hydrate(ctx context.Context) error {
	v, ok, err := g.kv.Get(ctx, AdminAuthStorageKey)
	if err != nil {
		return fmt.Errorf("load admin flag: %w", err)
	}
	g.mu.Lock()
	g.authenticated = ok && v == "true"
	g.mu.Unlock()
	return nil
}

func (g *AdminGate) Login(ctx context.Context, password string) error {
	if subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) != 1 {
		return ErrWrongAdminPassword
	}
	g.mu.Lock()
	g.authenticated = true
	g.mu.Unlock()
	if err := g.kv.Set(ctx, AdminAuthStorageKey, "true"); err != nil {
		g.logger.Error("failed to persist admin flag", zap.Error(err))
		return fmt.Errorf("persist admin flag: %w", err)
	}
	return nil
}

func (g *AdminGate) Logout(ctx context.Context) error {
	g.mu.Lock()
	g.authenticated = false
	g.mu.Unlock()
	if err := g.kv.Delete(ctx, AdminAuthStorageKey); err != nil {
		g.logger.Error("failed to clear admin flag", zap.Error(err))
		return fmt.Errorf("clear admin flag: %w", err)
	}
	return nil
}

func (g *AdminGate) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated
}
