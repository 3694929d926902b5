package product

import (
	"context"
	"database/sql"
	"errors"

	"ecoshop-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LowStockThreshold is the remaining-stock level at or below which a
// stock alert is raised for the brand owner.
const LowStockThreshold = 5

// StockLedger mutates product stock inside a caller-owned transaction.
// Every method takes the transaction explicitly: reservations must commit
// or roll back together with the order that caused them.
type StockLedger interface {
	GetForOrder(ctx context.Context, tx *sql.Tx, productID uuid.UUID) (*Product, error)
	Reserve(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int) (int, error)
	Restore(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int) error
}

type stockLedger struct{}

func NewStockLedger() StockLedger {
	return &stockLedger{}
}

// GetForOrder loads the pricing/impact snapshot fields and brand ownership
// under a row lock, so two orders racing for the same product serialize on
// the product row rather than both reading the same stock value.
func (l *stockLedger) GetForOrder(ctx context.Context, tx *sql.Tx, productID uuid.UUID) (*Product, error) {
	query := `
		SELECT
			p.id, p.name, p.price_cents, p.carbon_grams, p.stock,
			b.id, b.name, u.email
		FROM products p
		JOIN brands b ON b.id = p.brand_id
		JOIN users u ON u.id = b.owner_id
		WHERE p.id = $1
		FOR UPDATE OF p
	`

	var p Product
	err := tx.QueryRowContext(ctx, query, productID).
		Scan(
			&p.ID,
			&p.Name,
			&p.PriceCents,
			&p.CarbonGrams,
			&p.Stock,
			&p.Brand.ID,
			&p.Brand.Name,
			&p.Brand.OwnerEmail,
		)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// Reserve decrements stock and returns the post-decrement value. The
// guard lives in the UPDATE itself, not in application code: stock can
// never go negative even when two transactions race for the last unit.
func (l *stockLedger) Reserve(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int) (int, error) {
	query := `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
		RETURNING stock
	`

	var remaining int
	err := tx.QueryRowContext(ctx, query, quantity, productID).Scan(&remaining)

	if errors.Is(err, sql.ErrNoRows) {
		logger.FromCtx(ctx).Warn("stock reservation rejected",
			zap.String("product_id", productID.String()),
			zap.Int("quantity", quantity),
		)
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}

	return remaining, nil
}

// Restore puts reserved stock back. Compensation for order cancellation.
func (l *stockLedger) Restore(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2
	`, quantity, productID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProductNotFound
	}

	return nil
}
