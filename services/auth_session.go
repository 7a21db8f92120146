package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/repository"
	"go.uber.org/zap"
)

const profileFetchTimeout = 5 * time.Second

var ErrAuthUnavailable = errors.New("authentication is not configured")

// AuthSessionMirror tracks the provider's session for one shopper session and keeps the
// matching profile loaded.
type AuthSessionMirror struct {
	key      string
	provider AuthProvider
	profiles repository.ProfileRepository
	logger   *zap.Logger

	mu          sync.RWMutex
	session     *models.Session
	profile     *models.Profile
	loading     bool
	unsubscribe func()
}

func NewAuthSessionMirror(key string, provider AuthProvider, profiles repository.ProfileRepository, logger *zap.Logger) *AuthSessionMirror {
	return &AuthSessionMirror{
		key:      key,
		provider: provider,
		profiles: profiles,
		logger:   logger,
		loading:  true,
	}
}

// Start subscribes to session changes and loads the current session.
func (m *AuthSessionMirror) Start(ctx context.Context) {
	if m.provider == nil {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
		return
	}
	unsubscribe := m.provider.OnSessionChange(func(ev models.SessionEvent) {
		if ev.Key != m.key {
			return
		}
		fctx, cancel := context.WithTimeout(context.Background(), profileFetchTimeout)
		defer cancel()
		m.apply(fctx, ev.Session)
	})

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()

	m.apply(ctx, m.provider.CurrentSession(m.key))

	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}

func (m *AuthSessionMirror) apply(ctx context.Context, session *models.Session) {
	var profile *models.Profile
	if session != nil && m.profiles != nil {
		p, err := m.profiles.FindByUserID(ctx, session.User.ID)
		if err != nil {
			m.logger.Warn("failed to fetch profile", zap.String("user_id", session.User.ID), zap.Error(err))
		}
		profile = p
	}

	m.mu.Lock()
	m.session = session
	m.profile = profile
	m.mu.Unlock()
}

func (m *AuthSessionMirror) SignUp(ctx context.Context, email, password, fullName string) error {
	if m.provider == nil {
		return ErrAuthUnavailable
	}
	return m.provider.SignUp(ctx, email, password, fullName)
}

func (m *AuthSessionMirror) SignIn(ctx context.Context, email, password string) error {
	if m.provider == nil {
		return ErrAuthUnavailable
	}
	return m.provider.SignIn(ctx, m.key, email, password)
}

func (m *AuthSessionMirror) SignOut(ctx context.Context) error {
	if m.provider == nil {
		return ErrAuthUnavailable
	}
	return m.provider.SignOut(ctx, m.key)
}

func (m *AuthSessionMirror) Session() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *AuthSessionMirror) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	u := m.session.User
	return &u
}

func (m *AuthSessionMirror) Profile() *models.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

func (m *AuthSessionMirror) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func (m *AuthSessionMirror) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// Close unsubscribes from the provider.
func (m *AuthSessionMirror) Close() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
