package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/domain"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users  UserStore
	Tokens *auth.Tokens
}

func NewAuthService(users UserStore, tokens *auth.Tokens) *AuthService {
	return &AuthService{Users: users, Tokens: tokens}
}

// Verify checks credentials without touching sessions.
func (s *AuthService) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrBadCreds
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	return u, nil
}

// Login verifies credentials and binds the session to the user.
func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

// SessionUser satisfies auth.SessionLookup.
func (s *AuthService) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}

// IssueToken exchanges credentials for a bearer token.
func (s *AuthService) IssueToken(ctx context.Context, email, password string) (string, time.Time, *domain.User, error) {
	u, err := s.Verify(ctx, email, password)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	tok, exp, err := s.Tokens.Issue(u)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return tok, exp, u, nil
}
