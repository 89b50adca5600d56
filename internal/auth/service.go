package auth

import (
	"context"
	"errors"
	"time"

	"github.com/greenpay/greenpay/internal/config"
	"github.com/greenpay/greenpay/internal/identity"
)

// Service issues and rotates token pairs bound to a user's token version.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
}

// NewService builds the auth service.
func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo}
}

// TokenPair is the login response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues an access/refresh pair for an authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, accessExp, err := Sign(user.ID, user.Role, user.TokenVersion, []byte(s.cfg.JWTSecret), s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := Sign(user.ID, user.Role, user.TokenVersion, []byte(s.cfg.RefreshSecret), s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(accessExp).Seconds()),
	}, nil
}

// Refresh verifies the refresh token and mints a new access token if the
// token version still matches.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := Parse(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}

	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", 0, errors.New("user not found")
	}
	if user.TokenVersion != claims.TokenVersion {
		return "", 0, errors.New("token invalidated")
	}

	access, _, err := Sign(user.ID, user.Role, user.TokenVersion, []byte(s.cfg.JWTSecret), s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout increments the token version so outstanding tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}
