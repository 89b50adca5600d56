package cards

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores cards in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const cardColumns = `id, account_id, provider_ref, label, currency, last4, exp_month, exp_year, status, created_at`

// Create inserts a card record.
func (r *PostgresRepository) Create(ctx context.Context, card Card) error {
	cardID, err := uuid.Parse(card.ID)
	if err != nil {
		return err
	}
	acctID, err := uuid.Parse(card.AccountID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO cards (id, account_id, provider_ref, label, currency, last4, exp_month, exp_year, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		cardID, acctID, card.ProviderRef, card.Label, card.Currency, card.Last4,
		card.ExpMonth, card.ExpYear, card.Status, card.CreatedAt.UTC())
	return err
}

// Get fetches a card by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Card, error) {
	cardID, err := uuid.Parse(id)
	if err != nil {
		return Card{}, ErrCardNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, cardID)
	return scanCard(row)
}

// GetByAccount fetches the account's card.
func (r *PostgresRepository) GetByAccount(ctx context.Context, accountID string) (Card, error) {
	acctID, err := uuid.Parse(accountID)
	if err != nil {
		return Card{}, ErrCardNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE account_id = $1`, acctID)
	return scanCard(row)
}

// SetStatus updates the card lifecycle status.
func (r *PostgresRepository) SetStatus(ctx context.Context, id, status string) error {
	cardID, err := uuid.Parse(id)
	if err != nil {
		return ErrCardNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE cards SET status = $1 WHERE id = $2`, status, cardID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

func scanCard(row pgx.Row) (Card, error) {
	var (
		card      Card
		id        uuid.UUID
		acctID    uuid.UUID
		createdAt time.Time
	)
	err := row.Scan(&id, &acctID, &card.ProviderRef, &card.Label, &card.Currency,
		&card.Last4, &card.ExpMonth, &card.ExpYear, &card.Status, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrCardNotFound
		}
		return Card{}, err
	}
	card.ID = id.String()
	card.AccountID = acctID.String()
	card.CreatedAt = createdAt.UTC()
	return card, nil
}
