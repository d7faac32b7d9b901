package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"sahaj/internal/redis"
)

const tokenKeyPrefix = "sahaj:workspace_token:"

var (
	ErrTokenRequired = errors.New("token required")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

// Service issues, validates, and revokes workspace access tokens. A token
// maps to one workspace id and slides forward on every successful use.
type Service struct {
	rdb            *redis.Client
	tokenTTL       time.Duration
	cookieName     string
	headerName     string
	csrfCookieName string
	csrfHeaderName string
}

// NewService constructs an auth service with the supplied token lifetime.
func NewService(rdb *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		rdb:            rdb,
		tokenTTL:       ttl,
		cookieName:     "workspace_token",
		headerName:     "Authorization",
		csrfCookieName: "csrf_token",
		csrfHeaderName: "X-CSRF-Token",
	}
}

// Issue mints a new random token for the workspace.
func (s *Service) Issue(ctx context.Context, workspaceID string) (string, error) {
	if workspaceID == "" {
		return "", errors.New("workspace id required")
	}
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		ok, err := s.rdb.SetNX(ctx, tokenKey(token), workspaceID, s.tokenTTL)
		if err != nil {
			return "", fmt.Errorf("store token: %w", err)
		}
		if ok {
			return token, nil
		}
	}
	return "", errors.New("could not issue token")
}

// NewCSRFToken returns a random token used for CSRF protection.
func (s *Service) NewCSRFToken() (string, error) {
	return generateToken()
}

// Validate returns the workspace id the token grants access to.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenRequired
	}
	workspaceID, err := s.rdb.Get(ctx, tokenKey(token))
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("lookup token: %w", err)
	}
	if err := s.rdb.Expire(ctx, tokenKey(token), s.tokenTTL); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	return workspaceID, nil
}

// Revoke deletes a single token.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, tokenKey(token)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CookieName returns the cookie name storing workspace tokens.
func (s *Service) CookieName() string {
	return s.cookieName
}

// CSRFCookieName returns the cookie used for CSRF tokens.
func (s *Service) CSRFCookieName() string {
	return s.csrfCookieName
}

// CSRFHeaderName returns the CSRF header name.
func (s *Service) CSRFHeaderName() string {
	return s.csrfHeaderName
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
