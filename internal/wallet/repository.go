package wallet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type ApplyCreditParams struct {
	WalletID        uuid.UUID
	ExpectedVersion int64
	Amount          int64
	Level           string
	ReferenceID     *uuid.UUID
	Description     string
	Metadata        map[string]any
}

type ApplyCreditOutcome struct {
	// Applied is false when the version check lost a race; the caller
	// re-reads the wallet and retries.
	Applied bool
	// Duplicate is true when an EARN entry with the same reference id
	// already exists; the credit is a replay and must not run twice.
	Duplicate bool
}

type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	History(ctx context.Context, walletID uuid.UUID, limit int) ([]*Transaction, error)
	ApplyCredit(ctx context.Context, params ApplyCreditParams) (ApplyCreditOutcome, error)
	LifetimeCarbonGrams(ctx context.Context, userID uuid.UUID) (int64, error)
	SumTransactions(ctx context.Context, walletID uuid.UUID) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const walletColumns = `id, user_id, balance, level, version, created_at, updated_at`

func scanWallet(row *sql.Row) (*Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Level, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)

	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	return w, nil
}

// GetOrCreate creates the wallet lazily on first access, with balance 0
// and the starting level. The upsert keeps concurrent first accesses from
// racing each other.
func (r *repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, level, version)
		VALUES ($1, $2, 0, $3, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID, LevelSemilla)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	return r.GetByUserID(ctx, userID)
}

func (r *repository) History(ctx context.Context, walletID uuid.UUID, limit int) ([]*Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, wallet_id, amount, type, reference_id, description, metadata, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*Transaction
	for rows.Next() {
		var t Transaction
		var metadata []byte
		if err := rows.Scan(
			&t.ID,
			&t.WalletID,
			&t.Amount,
			&t.Type,
			&t.ReferenceID,
			&t.Description,
			&metadata,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
			}
		}

		history = append(history, &t)
	}

	return history, rows.Err()
}

// ApplyCredit performs one optimistic attempt: bump the balance only if
// the version still matches, and append the EARN entry in the same
// transaction. The duplicate-reference check is the second line of
// defense behind the payment confirmation's PENDING guard.
func (r *repository) ApplyCredit(ctx context.Context, params ApplyCreditParams) (ApplyCreditOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ApplyCreditOutcome{}, err
	}
	defer tx.Rollback()

	if params.ReferenceID != nil {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM wallet_transactions
				WHERE wallet_id = $1 AND type = $2 AND reference_id = $3
			)
		`, params.WalletID, TypeEarn, *params.ReferenceID).Scan(&exists)
		if err != nil {
			return ApplyCreditOutcome{}, err
		}
		if exists {
			return ApplyCreditOutcome{Duplicate: true}, nil
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance + $1, level = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
	`, params.Amount, params.Level, params.WalletID, params.ExpectedVersion)
	if err != nil {
		return ApplyCreditOutcome{}, err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ApplyCreditOutcome{}, nil
	}

	entry := &Transaction{
		WalletID:    params.WalletID,
		Amount:      params.Amount,
		Type:        TypeEarn,
		ReferenceID: params.ReferenceID,
		Description: params.Description,
		Metadata:    params.Metadata,
	}
	if err := AppendTransactionTx(ctx, tx, entry); err != nil {
		return ApplyCreditOutcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return ApplyCreditOutcome{}, err
	}

	return ApplyCreditOutcome{Applied: true}, nil
}

// LifetimeCarbonGrams aggregates CO2 saved across orders that reached
// payment; the eco-level is derived from this, never stored as truth.
func (r *repository) LifetimeCarbonGrams(ctx context.Context, userID uuid.UUID) (int64, error) {
	var grams int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_carbon_grams), 0)
		FROM orders
		WHERE user_id = $1 AND status IN ('PAID', 'SHIPPED', 'COMPLETED')
	`, userID).Scan(&grams)

	return grams, err
}

func (r *repository) SumTransactions(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1
	`, walletID).Scan(&sum)

	return sum, err
}

// --- transaction-scoped helpers, used by reward redemption ---

// GetForUpdateTx loads the wallet under a row lock inside the caller's
// transaction. Redemption reads the balance it is about to debit.
func GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&w.ID, &w.UserID, &w.Balance, &w.Level, &w.Version, &w.CreatedAt, &w.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	return &w, nil
}

// DebitTx subtracts amount from a wallet loaded by GetForUpdateTx in the
// same transaction. The version predicate still applies so a credit that
// committed between read and write is never silently clobbered.
func DebitTx(ctx context.Context, tx *sql.Tx, w *Wallet, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Balance < amount {
		return ErrInsufficientBalance
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance - $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND balance >= $1
	`, amount, w.ID, w.Version)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrVersionConflict
	}

	return nil
}

// AppendTransactionTx appends a ledger entry. Entries are write-once;
// there is deliberately no update or delete counterpart.
func AppendTransactionTx(ctx context.Context, tx *sql.Tx, entry *Transaction) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode transaction metadata: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, wallet_id, amount, type, reference_id, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.ID,
		entry.WalletID,
		entry.Amount,
		entry.Type,
		entry.ReferenceID,
		entry.Description,
		metadata,
	)

	return err
}
