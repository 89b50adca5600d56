package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists accounts in PostgreSQL. Balance adjustments use a
// single atomic UPDATE so concurrent requests on the same account serialize
// at the row level.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts an account record.
func (s *PostgresStore) Create(ctx context.Context, acct Account) error {
	acctID, err := uuid.Parse(acct.ID)
	if err != nil {
		return fmt.Errorf("parse account id: %w", err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO accounts (id, phone, kyc_status, has_card, balance, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
		acctID, acct.Phone, string(acct.KYCStatus), acct.HasCard, acct.Balance.String(), acct.CreatedAt.UTC())
	return err
}

// Get fetches an account by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Account, error) {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, phone, kyc_status, has_card, balance::text, created_at
        FROM accounts WHERE id = $1`, acctID)
	return scanAccount(row)
}

// List returns all accounts ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, phone, kyc_status, has_card, balance::text, created_at
        FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// GetBalance returns the current balance for the account.
func (s *PostgresStore) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return decimal.Zero, ErrNotFound
	}
	var raw string
	if err := s.db.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE id = $1`, acctID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// AdjustBalance applies a signed delta atomically. The WHERE clause enforces
// the non-negative floor inside the same statement.
func (s *PostgresStore) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return decimal.Zero, ErrNotFound
	}
	var raw string
	err = s.db.QueryRow(ctx, `UPDATE accounts SET balance = balance + $1::numeric
        WHERE id = $2 AND balance + $1::numeric >= 0
        RETURNING balance::text`, delta.String(), acctID).Scan(&raw)
	if err == nil {
		return decimal.NewFromString(raw)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, err
	}

	// Distinguish an unknown account from a rejected deduction.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, acctID).Scan(&exists); err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, ErrNotFound
	}
	return decimal.Zero, ErrInsufficientFunds
}

// SetKYCStatus updates the verification status.
func (s *PostgresStore) SetKYCStatus(ctx context.Context, id string, status KYCStatus) error {
	return s.setField(ctx, id, `UPDATE accounts SET kyc_status = $1 WHERE id = $2`, string(status))
}

// SetHasCard flags whether the account holds an active card.
func (s *PostgresStore) SetHasCard(ctx context.Context, id string, hasCard bool) error {
	return s.setField(ctx, id, `UPDATE accounts SET has_card = $1 WHERE id = $2`, hasCard)
}

func (s *PostgresStore) setField(ctx context.Context, id, query string, value any) error {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := s.db.Exec(ctx, query, value, acctID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		acct      Account
		id        uuid.UUID
		status    string
		rawBal    string
		createdAt time.Time
	)
	if err := row.Scan(&id, &acct.Phone, &status, &acct.HasCard, &rawBal, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	balance, err := decimal.NewFromString(rawBal)
	if err != nil {
		return Account{}, fmt.Errorf("parse balance: %w", err)
	}
	acct.ID = id.String()
	acct.KYCStatus = KYCStatus(status)
	acct.Balance = balance
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}
