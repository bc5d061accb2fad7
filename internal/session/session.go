// Package session holds the process-wide authentication context.
//
// Only the boolean auth flag is persisted. The access token and user descriptor live
// in memory, so a restart rehydrates the flag and the first authenticated check
// expires it when no token is held.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/localstore"
	"storefront/internal/model"
)

// Session is mutated only by Establish (login success), End (logout) and
// Expire (token expiry). Everything else reads.
type Session struct {
	store  *localstore.Store
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	flag      bool
	token     string
	expiresAt time.Time // zero when the token carries no exp claim
	user      *model.User
	onExpire  []func(ctx context.Context)
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates an unauthenticated Session. Call Restore to rehydrate the flag.
func New(store *localstore.Store, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore reads the persisted auth flag. Token and user are not restored.
func (s *Session) Restore(ctx context.Context) {
	flag := s.store.ReadAuthFlag(ctx)
	s.mu.Lock()
	s.flag = flag
	s.mu.Unlock()
	s.logger.Debug("session restored", "auth_flag", flag)
}

// OnExpire registers fn to run after the session expires.
func (s *Session) OnExpire(fn func(ctx context.Context)) {
	s.mu.Lock()
	s.onExpire = append(s.onExpire, fn)
	s.mu.Unlock()
}

// Establish records a successful login.
func (s *Session) Establish(ctx context.Context, user model.User, token string) {
	exp := tokenExpiry(token)

	s.mu.Lock()
	s.flag = true
	s.token = token
	s.expiresAt = exp
	s.user = &user
	s.mu.Unlock()

	s.store.WriteAuthFlag(ctx, true)
	s.logger.Info("session established", "user_id", user.ID, "expires_at", exp)
}

// End records a logout.
func (s *Session) End(ctx context.Context) {
	s.clear(ctx)
	s.logger.Info("session ended")
}

// Expire records token expiry, either detected locally or reported by the backend.
func (s *Session) Expire(ctx context.Context) {
	s.mu.RLock()
	wasSet := s.flag
	hooks := append([]func(context.Context){}, s.onExpire...)
	s.mu.RUnlock()

	s.clear(ctx)
	if !wasSet {
		return
	}
	s.logger.Warn("session expired")
	for _, fn := range hooks {
		fn(ctx)
	}
}

func (s *Session) clear(ctx context.Context) {
	s.mu.Lock()
	s.flag = false
	s.token = ""
	s.expiresAt = time.Time{}
	s.user = nil
	s.mu.Unlock()

	s.store.WriteAuthFlag(ctx, false)
}

// IsAuthenticated reports whether a usable session exists: the flag is set and an
// unexpired token is held. A flag without a live token is expired on the spot.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	s.mu.RLock()
	flag, token, exp := s.flag, s.token, s.expiresAt
	s.mu.RUnlock()

	if !flag {
		return false
	}
	if token == "" || (!exp.IsZero() && !s.now().Before(exp)) {
		s.Expire(ctx)
		return false
	}
	return true
}

// Token returns the access token, or "" when none is held.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user, if any.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// ExpiresAt returns the token's expiry, zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// tokenExpiry reads the exp claim without verifying the signature; the backend
// verifies. Opaque (non-JWT) tokens have no local expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
