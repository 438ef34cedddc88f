package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/essencia-app/essencia-cli/internal/adapters/api"
	"github.com/essencia-app/essencia-cli/internal/domain"
	"github.com/essencia-app/essencia-cli/internal/logging"
	"github.com/essencia-app/essencia-cli/internal/ports"
)

// SessionService owns "who is logged in": the durable token store plus the
// in-memory user projection. Being authenticated is defined as the in-memory
// user being non-nil, nothing else.
type SessionService struct {
	mu     sync.RWMutex
	client *api.Client
	tokens ports.TokenStore
	bus    Bus
	log    logging.Logger
	user   *domain.User
}

func NewSessionService(client *api.Client, tokens ports.TokenStore, bus Bus, log logging.Logger) *SessionService {
	if log == nil {
		log = logging.Nop{}
	}
	s := &SessionService{client: client, tokens: tokens, bus: bus, log: log}

	// The gateway drops the session when a refresh fails for good; mirror
	// that in memory so IsAuthenticated flips immediately.
	client.SetSessionEndHook(func() {
		s.setUser(nil)
	})

	return s
}

func (s *SessionService) Login(ctx context.Context, email, password string) (domain.User, error) {
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{ID: res.User.ID, Email: res.User.Email, ProfessionalID: res.User.ProfessionalID}
	if err := s.storeCredentials(ctx, res.Access, res.Refresh, user.ProfessionalID); err != nil {
		return domain.User{}, err
	}

	s.setUser(&user)
	s.log.Info(ctx, "logged in", "email", user.Email)
	return user, nil
}

// Register creates a professional account; a successful registration behaves
// like a login and stores the returned token pair.
func (s *SessionService) Register(ctx context.Context, form api.RegisterForm) (domain.User, error) {
	res, err := s.client.RegisterProfessional(ctx, form)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{ID: res.UserID, Email: form.Email, ProfessionalID: res.ProfessionalID}
	if err := s.storeCredentials(ctx, res.AccessValue(), res.RefreshValue(), user.ProfessionalID); err != nil {
		return domain.User{}, err
	}

	s.setUser(&user)
	s.log.Info(ctx, "registered professional", "professional_id", user.ProfessionalID)
	return user, nil
}

// Logout revokes the refresh token best-effort and then clears everything
// locally. A failing server call is logged and swallowed: logout always
// succeeds from the user's point of view.
func (s *SessionService) Logout(ctx context.Context) {
	if refresh, err := s.tokens.Get(ctx, domain.StorageKeyRefreshToken); err == nil && refresh != "" {
		if err := s.client.Logout(ctx, refresh); err != nil {
			s.log.Warn(ctx, "server-side logout failed", "error", err)
		}
	}

	for _, key := range []string{
		domain.StorageKeyAccessToken,
		domain.StorageKeyRefreshToken,
		domain.StorageKeyProfessionalID,
		domain.StorageKeyJustVerifiedEmail,
	} {
		if err := s.tokens.Delete(ctx, key); err != nil {
			s.log.Warn(ctx, "clear stored token", "key", key, "error", err)
		}
	}

	s.setUser(nil)
}

// RestoreOnBoot rebuilds the in-memory session from durable storage. A
// failing or absent /auth/me/ endpoint does not evict a session with valid
// tokens; identity falls back to the access token's claims, or to a minimal
// zero identity. Only an expired session (refresh failed during the fetch)
// leaves the user logged out.
func (s *SessionService) RestoreOnBoot(ctx context.Context) (*domain.User, error) {
	access, err := s.tokens.Get(ctx, domain.StorageKeyAccessToken)
	if err != nil || access == "" {
		if err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
			return nil, fmt.Errorf("read stored access token: %w", err)
		}
		return nil, nil
	}

	user, err := s.client.Me(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			s.setUser(nil)
			return nil, nil
		}
		s.log.Debug(ctx, "current-user fetch failed, using token identity", "error", err)
		user = s.identityFromToken(ctx, access)
	}

	s.setUser(&user)
	return s.Current(), nil
}

// ConsumeJustVerified reports whether the transient just-verified flag was
// set, clearing it so it fires once.
func (s *SessionService) ConsumeJustVerified(ctx context.Context) bool {
	if _, err := s.tokens.Get(ctx, domain.StorageKeyJustVerifiedEmail); err != nil {
		return false
	}
	if err := s.tokens.Delete(ctx, domain.StorageKeyJustVerifiedEmail); err != nil {
		s.log.Warn(ctx, "clear just-verified flag", "error", err)
	}
	return true
}

// MarkJustVerified records that the email was verified in this or a previous
// run, to be consumed at the next login.
func (s *SessionService) MarkJustVerified(ctx context.Context) error {
	return s.tokens.Put(ctx, domain.StorageKeyJustVerifiedEmail, "1")
}

func (s *SessionService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Current returns a copy of the in-memory user, or nil.
func (s *SessionService) Current() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// ProfessionalID resolves the professional id from memory first, then from
// durable storage.
func (s *SessionService) ProfessionalID(ctx context.Context) (int64, error) {
	if user := s.Current(); user != nil && user.ProfessionalID != 0 {
		return user.ProfessionalID, nil
	}

	stored, err := s.tokens.Get(ctx, domain.StorageKeyProfessionalID)
	if err != nil {
		return 0, fmt.Errorf("no professional profile for this session: %w", domain.ErrNotAuthenticated)
	}
	id, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored professional id %q: %w", stored, err)
	}
	return id, nil
}

func (s *SessionService) storeCredentials(ctx context.Context, access, refresh string, professionalID int64) error {
	if err := s.tokens.Put(ctx, domain.StorageKeyAccessToken, access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := s.tokens.Put(ctx, domain.StorageKeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if professionalID != 0 {
		if err := s.tokens.Put(ctx, domain.StorageKeyProfessionalID, strconv.FormatInt(professionalID, 10)); err != nil {
			return fmt.Errorf("store professional id: %w", err)
		}
	}
	return nil
}

// identityFromToken decodes the access token claims without verifying the
// signature; the backend already authenticated it. Unreadable tokens yield
// the minimal zero identity rather than a logout.
func (s *SessionService) identityFromToken(ctx context.Context, access string) domain.User {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		s.log.Debug(ctx, "parse access token claims", "error", err)
		return domain.User{}
	}

	user := domain.User{}
	if id, ok := claimInt64(claims, "user_id"); ok {
		user.ID = id
	} else if sub, err := claims.GetSubject(); err == nil {
		if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
			user.ID = id
		}
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if id, ok := claimInt64(claims, "professional_id"); ok {
		user.ProfessionalID = id
	}
	return user
}

func claimInt64(claims jwt.MapClaims, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

func (s *SessionService) setUser(user *domain.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(TopicSessionChanged)
	}
}
