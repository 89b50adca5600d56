package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/greenpay/greenpay/internal/account"
)

// PostgresStore persists transactions in PostgreSQL. The record write and the
// paired balance adjustment commit in one database transaction, so a crash
// mid-sequence cannot leave the ledger and the balance inconsistent.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed transaction store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const txnColumns = `id, account_id, type, amount::text, currency, fee::text,
    rate::text, status, recipient, description, conversion, created_at,
    completed_at, settle_at`

// Create inserts the transaction and applies the balance delta atomically.
func (s *PostgresStore) Create(ctx context.Context, txn Transaction, balanceDelta decimal.Decimal) (decimal.Decimal, error) {
	txnID, err := uuid.Parse(txn.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse transaction id: %w", err)
	}
	acctID, err := uuid.Parse(txn.AccountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse account id: %w", err)
	}

	dbtx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decimal.Zero, err
	}
	defer dbtx.Rollback(ctx) // nolint:errcheck

	newBalance := decimal.Zero
	if !balanceDelta.IsZero() {
		var raw string
		err := dbtx.QueryRow(ctx, `UPDATE accounts SET balance = balance + $1::numeric
            WHERE id = $2 AND balance + $1::numeric >= 0
            RETURNING balance::text`, balanceDelta.String(), acctID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := dbtx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, acctID).Scan(&exists); err != nil {
				return decimal.Zero, err
			}
			if !exists {
				return decimal.Zero, account.ErrNotFound
			}
			return decimal.Zero, account.ErrInsufficientFunds
		}
		if err != nil {
			return decimal.Zero, err
		}
		if newBalance, err = decimal.NewFromString(raw); err != nil {
			return decimal.Zero, err
		}
	}

	recipient, err := marshalNullable(txn.Recipient)
	if err != nil {
		return decimal.Zero, err
	}
	conversion, err := marshalNullable(txn.Conversion)
	if err != nil {
		return decimal.Zero, err
	}

	var rate *string
	if txn.Rate != nil {
		v := txn.Rate.String()
		rate = &v
	}

	_, err = dbtx.Exec(ctx, `INSERT INTO transactions
        (id, account_id, type, amount, currency, fee, rate, status, recipient, description, conversion, created_at, settle_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $13)`,
		txnID, acctID, string(txn.Type), txn.Amount.String(), txn.Currency, txn.Fee.String(),
		rate, string(txn.Status), recipient, txn.Description, conversion, txn.CreatedAt.UTC(), txn.SettleAt)
	if err != nil {
		return decimal.Zero, err
	}

	if err := dbtx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Get fetches one transaction.
func (s *PostgresStore) Get(ctx context.Context, id string) (Transaction, error) {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id = $1`, txnID)
	return scanTransaction(row)
}

// ListByAccount returns the account's transactions newest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string) ([]Transaction, error) {
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return nil, account.ErrNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+txnColumns+` FROM transactions
        WHERE account_id = $1 ORDER BY created_at DESC, id DESC`, acctID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// UpdateStatus applies a lifecycle transition under a row lock. A non-zero
// balanceDelta commits in the same database transaction as the status write.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status, balanceDelta decimal.Decimal) (Transaction, error) {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}

	dbtx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer dbtx.Rollback(ctx) // nolint:errcheck

	var (
		current string
		acctID  uuid.UUID
	)
	err = dbtx.QueryRow(ctx, `SELECT status, account_id FROM transactions WHERE id = $1 FOR UPDATE`, txnID).Scan(&current, &acctID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	if !Status(current).CanTransitionTo(status) {
		return Transaction{}, ErrInvalidTransition
	}

	if !balanceDelta.IsZero() {
		tag, err := dbtx.Exec(ctx, `UPDATE accounts SET balance = balance + $1::numeric
            WHERE id = $2 AND balance + $1::numeric >= 0`, balanceDelta.String(), acctID)
		if err != nil {
			return Transaction{}, err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := dbtx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, acctID).Scan(&exists); err != nil {
				return Transaction{}, err
			}
			if !exists {
				return Transaction{}, account.ErrNotFound
			}
			return Transaction{}, account.ErrInsufficientFunds
		}
	}

	var completedAt *time.Time
	if status == StatusCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}
	if _, err := dbtx.Exec(ctx, `UPDATE transactions SET status = $1, completed_at = $2, settle_at = NULL
        WHERE id = $3`, string(status), completedAt, txnID); err != nil {
		return Transaction{}, err
	}

	if err := dbtx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return s.Get(ctx, id)
}

// DueForSettlement returns processing transactions whose settle-at time has passed.
func (s *PostgresStore) DueForSettlement(ctx context.Context, now time.Time) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+txnColumns+` FROM transactions
        WHERE status = $1 AND settle_at IS NOT NULL AND settle_at <= $2
        ORDER BY created_at ASC`, string(StatusProcessing), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, txn)
	}
	return due, rows.Err()
}

// CountAwaitingSettlement reports outstanding settlement work.
func (s *PostgresStore) CountAwaitingSettlement(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions
        WHERE status = $1 AND settle_at IS NOT NULL`, string(StatusProcessing)).Scan(&n)
	return n, err
}

func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *RecipientDetails:
		if val == nil {
			return nil, nil
		}
	case *ConversionMetadata:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		txn         Transaction
		id          uuid.UUID
		acctID      uuid.UUID
		typ         string
		rawAmount   string
		rawFee      string
		rawRate     *string
		status      string
		recipient   []byte
		conversion  []byte
		createdAt   time.Time
		completedAt *time.Time
		settleAt    *time.Time
	)
	err := row.Scan(&id, &acctID, &typ, &rawAmount, &txn.Currency, &rawFee, &rawRate,
		&status, &recipient, &txn.Description, &conversion, &createdAt, &completedAt, &settleAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}

	if txn.Amount, err = decimal.NewFromString(rawAmount); err != nil {
		return Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	if txn.Fee, err = decimal.NewFromString(rawFee); err != nil {
		return Transaction{}, fmt.Errorf("parse fee: %w", err)
	}
	if rawRate != nil {
		rate, err := decimal.NewFromString(*rawRate)
		if err != nil {
			return Transaction{}, fmt.Errorf("parse rate: %w", err)
		}
		txn.Rate = &rate
	}
	if len(recipient) > 0 {
		txn.Recipient = &RecipientDetails{}
		if err := json.Unmarshal(recipient, txn.Recipient); err != nil {
			return Transaction{}, fmt.Errorf("decode recipient: %w", err)
		}
	}
	if len(conversion) > 0 {
		txn.Conversion = &ConversionMetadata{}
		if err := json.Unmarshal(conversion, txn.Conversion); err != nil {
			return Transaction{}, fmt.Errorf("decode conversion: %w", err)
		}
	}

	txn.ID = id.String()
	txn.AccountID = acctID.String()
	txn.Type = Type(typ)
	txn.Status = Status(status)
	txn.CreatedAt = createdAt.UTC()
	if completedAt != nil {
		t := completedAt.UTC()
		txn.CompletedAt = &t
	}
	if settleAt != nil {
		t := settleAt.UTC()
		txn.SettleAt = &t
	}
	return txn, nil
}
