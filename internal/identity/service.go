package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenpay/greenpay/internal/account"
)

var (
	// ErrInvalidPIN indicates a failed credential check.
	ErrInvalidPIN = errors.New("invalid PIN")
	// ErrKYCState indicates a KYC transition is not allowed from the current status.
	ErrKYCState = errors.New("invalid KYC state for this operation")
)

// Service manages user lifecycle: registration, authentication and KYC.
type Service struct {
	repo     Repository
	accounts account.Store
}

// NewService creates a new identity service.
func NewService(repo Repository, accounts account.Store) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// Register creates a new user with a hashed PIN and provisions the account
// that will carry the balance, starting at zero.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	if len(creds.PIN) < 4 {
		return User{}, errors.New("PIN must be at least 4 digits")
	}
	if creds.Phone == "" {
		return User{}, errors.New("phone is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:        uuid.NewString(),
		Phone:     creds.Phone,
		Role:      RoleUser,
		PINHash:   hash,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	acct := account.Account{
		ID:        user.ID,
		Phone:     user.Phone,
		KYCStatus: account.KYCPending,
		Balance:   decimal.Zero,
		CreatedAt: user.CreatedAt,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies credentials and records the login time.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByPhone(ctx, creds.Phone)
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(creds.PIN)); err != nil {
		return User{}, ErrInvalidPIN
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLogin = &now

	return user, nil
}

// SubmitKYC moves the account from pending to submitted for review.
func (s *Service) SubmitKYC(ctx context.Context, userID string) error {
	acct, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return err
	}
	if acct.KYCStatus != account.KYCPending && acct.KYCStatus != account.KYCRejected {
		return ErrKYCState
	}
	return s.accounts.SetKYCStatus(ctx, userID, account.KYCSubmitted)
}

// ReviewKYC is the administrative verdict on a submitted application.
func (s *Service) ReviewKYC(ctx context.Context, userID string, approve bool) error {
	acct, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return err
	}
	if acct.KYCStatus != account.KYCSubmitted {
		return ErrKYCState
	}
	status := account.KYCRejected
	if approve {
		status = account.KYCVerified
	}
	return s.accounts.SetKYCStatus(ctx, userID, status)
}
