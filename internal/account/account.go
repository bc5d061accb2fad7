// Package account runs login, registration and logout, including the guest sync
// that must finish before a login reports success.
package account

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"storefront/internal/cartsync"
	"storefront/internal/model"
	"storefront/internal/viewcache"
)

// Authenticator exchanges credentials with the backend. *remote.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
	Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error)
}

// SessionManager is the write side of the session. *session.Session implements it.
type SessionManager interface {
	Establish(ctx context.Context, user model.User, token string)
	End(ctx context.Context)
}

// Syncer replays the guest store. *cartsync.Engine implements it.
type Syncer interface {
	Run(ctx context.Context) cartsync.Result
}

// Invalidator drops cached server-backed views.
type Invalidator interface {
	InvalidateTags(tags ...string) int
}

// LoginResult is returned once the session exists and the sync has run.
// Sync is nil when no session was established (registration without sign-in).
type LoginResult struct {
	User model.User       `json:"user"`
	Sync *cartsync.Result `json:"sync,omitempty"`
}

// Service coordinates the login flow.
type Service struct {
	auth    Authenticator
	session SessionManager
	sync    Syncer
	cache   Invalidator
	logger  *slog.Logger
}

// NewService creates an account service.
func NewService(auth Authenticator, session SessionManager, sync Syncer, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{auth: auth, session: session, sync: sync, cache: cache, logger: logger}
}

// Login exchanges credentials, establishes the session and syncs the guest store.
// Sync failures are reported in the result and never fail the login.
func (s *Service) Login(ctx context.Context, creds model.Credentials) (*LoginResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := validateEmail(creds.Email); err != nil {
		return nil, err
	}
	if creds.Password == "" {
		return nil, model.NewValidationError("password", "required")
	}

	res, err := s.auth.Login(ctx, creds)
	if err != nil {
		s.logger.Info("login rejected", "email", creds.Email, "error", err)
		return nil, err
	}
	return s.establish(ctx, res), nil
}

// Register creates an account. When the backend signs the new user in, the flow
// continues exactly like Login.
func (s *Service) Register(ctx context.Context, reg model.Registration) (*LoginResult, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := validateEmail(reg.Email); err != nil {
		return nil, err
	}
	if len(reg.Password) < 8 {
		return nil, model.NewValidationError("password", "must be at least 8 characters")
	}

	res, err := s.auth.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	if res.Access == "" {
		s.logger.Info("registered without session", "user_id", res.User.ID)
		return &LoginResult{User: res.User}, nil
	}
	return s.establish(ctx, res), nil
}

func (s *Service) establish(ctx context.Context, res *model.AuthResult) *LoginResult {
	s.session.Establish(ctx, res.User, res.Access)
	sync := s.sync.Run(ctx)
	if !sync.OK() {
		s.logger.Warn("login completed with sync failures",
			"user_id", res.User.ID,
			"failed", len(sync.Failed),
		)
	}
	return &LoginResult{User: res.User, Sync: &sync}
}

// Logout ends the session and drops server views. The guest store is untouched,
// so the pre-login basket shows again.
func (s *Service) Logout(ctx context.Context) {
	s.session.End(ctx)
	s.cache.InvalidateTags(viewcache.TagCart, viewcache.TagWishlist)
}

func validateEmail(email string) error {
	if email == "" {
		return model.NewValidationError("email", "required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.NewValidationError("email", "not a valid address")
	}
	return nil
}
