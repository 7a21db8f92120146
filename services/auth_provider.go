package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AuthProvider is the external identity collaborator. Sessions are bound to an opaque key,
// one per shopper session.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password, fullName string) error
	SignIn(ctx context.Context, key, email, password string) error
	SignOut(ctx context.Context, key string) error
	// OnSessionChange registers fn for every session change and returns its unsubscribe func.
	OnSessionChange(fn func(models.SessionEvent)) func()
	CurrentSession(key string) *models.Session
}

// LocalAuthProvider keeps users in the relational store and signed-in sessions in memory.
type LocalAuthProvider struct {
	users     repository.UserRepository
	tokens    *TokenService
	passwords *PasswordValidator
	logger    *zap.Logger

	mu        sync.RWMutex
	sessions  map[string]*models.Session
	listeners map[int]func(models.SessionEvent)
	nextID    int
}

func NewLocalAuthProvider(users repository.UserRepository, tokens *TokenService, logger *zap.Logger) *LocalAuthProvider {
	return &LocalAuthProvider{
		users:     users,
		tokens:    tokens,
		passwords: NewPasswordValidator(),
		logger:    logger,
		sessions:  make(map[string]*models.Session),
		listeners: make(map[int]func(models.SessionEvent)),
	}
}

func (p *LocalAuthProvider) SignUp(ctx context.Context, email, password, fullName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if err := p.passwords.Validate(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	profile := &models.Profile{ID: user.ID, Email: email, FullName: strings.TrimSpace(fullName)}
	if err := p.users.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return err
		}
		return fmt.Errorf("create user: %w", err)
	}
	p.logger.Info("user signed up", zap.String("user_id", user.ID))
	return nil
}

func (p *LocalAuthProvider) SignIn(ctx context.Context, key, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	token, exp, err := p.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	session := &models.Session{AccessToken: token, User: *user, ExpiresAt: exp}

	p.mu.Lock()
	p.sessions[key] = session
	p.mu.Unlock()

	p.emit(models.SessionEvent{Key: key, Session: session})
	return nil
}

func (p *LocalAuthProvider) SignOut(_ context.Context, key string) error {
	p.mu.Lock()
	_, had := p.sessions[key]
	delete(p.sessions, key)
	p.mu.Unlock()

	if had {
		p.emit(models.SessionEvent{Key: key})
	}
	return nil
}

func (p *LocalAuthProvider) OnSessionChange(fn func(models.SessionEvent)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// CurrentSession returns the live session for key. Sessions whose token no longer
// validates are dropped.
func (p *LocalAuthProvider) CurrentSession(key string) *models.Session {
	p.mu.RLock()
	session := p.sessions[key]
	p.mu.RUnlock()
	if session == nil {
		return nil
	}
	if _, err := p.tokens.Validate(session.AccessToken); err != nil {
		_ = p.SignOut(context.Background(), key)
		return nil
	}
	copied := *session
	return &copied
}

func (p *LocalAuthProvider) emit(event models.SessionEvent) {
	p.mu.RLock()
	fns := make([]func(models.SessionEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}
