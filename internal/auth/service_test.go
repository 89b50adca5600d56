package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/greenpay/greenpay/internal/config"
	"github.com/greenpay/greenpay/internal/identity"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 720 * time.Hour,
	}
}

func seedUser(t *testing.T, repo identity.Repository) identity.User {
	t.Helper()
	user := identity.User{
		ID:        uuid.NewString(),
		Phone:     "+15550001111",
		Role:      identity.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestSignParseRoundTrip(t *testing.T) {
	token, exp, err := Sign("user-1", identity.RoleAdmin, 3, []byte("secret"), time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry in the past: %v", exp)
	}

	claims, err := Parse(token, []byte("secret"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != identity.RoleAdmin || claims.TokenVersion != 3 {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := Parse(token, []byte("wrong-secret")); err == nil {
		t.Fatalf("expected signature verification failure")
	}
}

func TestParseExpiredToken(t *testing.T) {
	token, _, err := Sign("user-1", identity.RoleUser, 0, []byte("secret"), -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse(token, []byte("secret")); err == nil {
		t.Fatalf("expected expired token rejection")
	}
}

func TestLoginAndRefresh(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := seedUser(t, repo)
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete token pair: %+v", pair)
	}

	access, expiresIn, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access == "" || expiresIn <= 0 {
		t.Fatalf("unexpected refresh result: %q %d", access, expiresIn)
	}
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := seedUser(t, repo)
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatalf("expected refresh rejection after logout")
	}
}
