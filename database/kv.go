package database

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// KV is the durable key/value store behind the cart, wishlist, order ledger and settings.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Claimer stores a value only when the key is absent. A zero ttl keeps the key forever.
type Claimer interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

var ErrClaimUnsupported = errors.New("store does not support set-if-absent")

// SetNX claims key on kv and reports whether this call won.
func SetNX(ctx context.Context, kv KV, key, value string, ttl time.Duration) (bool, error) {
	c, ok := kv.(Claimer)
	if !ok {
		return false, ErrClaimUnsupported
	}
	return c.SetNX(ctx, key, value, ttl)
}

// GetJSON decodes the value at key into dst. found is false when the key is absent.
func GetJSON(ctx context.Context, kv KV, key string, dst interface{}) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON encodes v and stores it at key, overwriting any previous value.
func SetJSON(ctx context.Context, kv KV, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, string(data))
}

// PrefixedKV scopes every key under a fixed prefix.
type PrefixedKV struct {
	inner  KV
	prefix string
}

func NewPrefixedKV(inner KV, prefix string) *PrefixedKV {
	return &PrefixedKV{inner: inner, prefix: prefix}
}

func (p *PrefixedKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return SetNX(ctx, p.inner, p.prefix+key, value, ttl)
}

// SessionKV scopes kv to one shopper session.
func SessionKV(kv KV, sessionID string) *PrefixedKV {
	return NewPrefixedKV(kv, "session:"+sessionID+":")
}

func (p *PrefixedKV) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *PrefixedKV) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *PrefixedKV) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

// MemoryKV keeps everything in process memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// SetNX ignores ttl; in-memory keys live until deleted.
func (m *MemoryKV) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

// Keys returns the stored keys; used by tests.
func (m *MemoryKV) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}
