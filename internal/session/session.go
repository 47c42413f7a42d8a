package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"AlsitoQC/internal/models"
)

// Fixed storage keys.
const (
	TokenKey   = "authToken"
	ProfileKey = "userProfile"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("session: not authenticated")

// Session is the authenticated state kept between launches.
type Session struct {
	Token   string         `json:"token"`
	Profile models.Profile `json:"profile"`
}

// Store owns the persisted session. The token goes to the secure store,
// the profile to the general store. It is written once per successful
// login and never refreshed.
type Store struct {
	secure  KV
	general KV
	logger  *zap.Logger
}

func NewStore(secure, general KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{secure: secure, general: general, logger: logger}
}

// Save persists token and profile.
func (s *Store) Save(ctx context.Context, token string, profile models.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.secure.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := s.general.Set(ctx, ProfileKey, string(data)); err != nil {
		// do not leave a token without its profile
		if derr := s.secure.Delete(ctx, TokenKey); derr != nil {
			s.logger.Warn("rollback token failed", zap.Error(derr))
		}
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// Load returns the stored session or ErrNoSession.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	token, ok, err := s.secure.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if !ok || token == "" {
		return nil, ErrNoSession
	}
	sess := &Session{Token: token}
	raw, ok, err := s.general.Get(ctx, ProfileKey)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &sess.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	return sess, nil
}

// Token returns the stored bearer token, empty when logged out.
func (s *Store) Token(ctx context.Context) string {
	token, ok, err := s.secure.Get(ctx, TokenKey)
	if err != nil || !ok {
		return ""
	}
	return token
}

// Clear removes both entries.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(s.secure.Delete(ctx, TokenKey), s.general.Delete(ctx, ProfileKey))
}

// Route decides the start screen: "home" with a session, else "login".
func (s *Store) Route(ctx context.Context) string {
	if _, err := s.Load(ctx); err != nil {
		if !errors.Is(err, ErrNoSession) {
			s.logger.Warn("session unreadable, routing to login", zap.Error(err))
		}
		return "login"
	}
	return "home"
}
