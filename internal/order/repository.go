package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateOrderParams struct {
	UserID     uuid.UUID
	AddressID  uuid.UUID
	Items      []NewOrderItem
	CouponCode *string
}

type Repository interface {
	CreateOrderTx(ctx context.Context, params CreateOrderParams) (*Order, []product.StockAlert, error)
	GetDetail(ctx context.Context, orderID uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	GetStatus(ctx context.Context, orderID uuid.UUID) (Status, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) error
	MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error)
	GetFanout(ctx context.Context, orderID uuid.UUID) (*FanoutOrder, error)
	CancelTx(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db     *sql.DB
	ledger product.StockLedger
}

func NewRepository(db *sql.DB, ledger product.StockLedger) Repository {
	return &repository{db: db, ledger: ledger}
}

// CreateOrderTx assembles the whole order in one transaction: address
// ownership, per-line stock reservation with price/impact snapshots,
// optional coupon burn, then the order and its items. Any failure rolls
// back every reservation made so far.
func (r *repository) CreateOrderTx(ctx context.Context, params CreateOrderParams) (*Order, []product.StockAlert, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.String("user_id", params.UserID.String()),
		zap.Int("item_count", len(params.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback order transaction", zap.Error(rbErr))
			}
		}
	}()

	// 1. Shipping address must belong to the buyer.
	var addressID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM addresses WHERE id = $1 AND user_id = $2
	`, params.AddressID, params.UserID).Scan(&addressID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	o := &Order{
		ID:        uuid.New(),
		UserID:    params.UserID,
		AddressID: addressID,
		Status:    StatusPending,
	}

	var alerts []product.StockAlert

	// 2. Reserve stock line by line, snapshotting price and impact at
	// purchase time.
	for _, item := range params.Items {
		p, err := r.ledger.GetForOrder(ctx, tx, item.ProductID)
		if err != nil {
			return nil, nil, err
		}

		remaining, err := r.ledger.Reserve(ctx, tx, p.ID, item.Quantity)
		if err != nil {
			return nil, nil, err
		}

		if remaining <= product.LowStockThreshold {
			alerts = append(alerts, product.StockAlert{
				ProductID:   p.ID,
				ProductName: p.Name,
				BrandName:   p.Brand.Name,
				OwnerEmail:  p.Brand.OwnerEmail,
				Remaining:   remaining,
			})
		}

		o.TotalCents += p.PriceCents * int64(item.Quantity)
		o.TotalCarbonGrams += p.CarbonGrams * int64(item.Quantity)

		o.Items = append(o.Items, OrderItem{
			ID:                    uuid.New(),
			OrderID:               o.ID,
			ProductID:             p.ID,
			ProductName:           p.Name,
			Quantity:              item.Quantity,
			PriceCentsAtPurchase:  p.PriceCents,
			CarbonGramsAtPurchase: p.CarbonGrams,
		})
	}

	// 3. Burn the coupon, if any, in the same transaction.
	if params.CouponCode != nil && *params.CouponCode != "" {
		discount, err := r.applyCoupon(ctx, tx, *params.CouponCode, params.UserID, o.TotalCents)
		if err != nil {
			return nil, nil, err
		}

		o.TotalCents -= discount
		if o.TotalCents < 0 {
			o.TotalCents = 0
		}
	}

	// 4. Persist the order and its items.
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, user_id, address_id, status, total_cents, total_carbon_grams)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`,
		o.ID,
		o.UserID,
		o.AddressID,
		o.Status,
		o.TotalCents,
		o.TotalCarbonGrams,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price_cents_at_purchase, carbon_grams_at_purchase)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.PriceCentsAtPurchase,
			item.CarbonGramsAtPurchase,
		)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true

	log.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.Int64("total_cents", o.TotalCents),
		zap.Int64("total_carbon_grams", o.TotalCarbonGrams),
		zap.Int("stock_alerts", len(alerts)),
	)

	return o, alerts, nil
}

// applyCoupon validates ownership, single-use and expiry, flips is_used,
// and returns the discount in cents, floored to zero by the caller.
func (r *repository) applyCoupon(ctx context.Context, tx *sql.Tx, code string, userID uuid.UUID, totalCents int64) (int64, error) {
	var (
		couponID  uuid.UUID
		ownerID   uuid.UUID
		pct       int
		isUsed    bool
		expiresAt *time.Time
	)

	err := tx.QueryRowContext(ctx, `
		SELECT id, user_id, discount_percentage, is_used, expires_at
		FROM coupons
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(&couponID, &ownerID, &pct, &isUsed, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrCouponNotFound
	}
	if err != nil {
		return 0, err
	}

	// Ownership before state: a stranger presenting someone else's code
	// must not learn whether it was spent.
	if ownerID != userID {
		return 0, ErrCouponNotOwned
	}
	if isUsed {
		return 0, ErrCouponUsed
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		return 0, ErrCouponExpired
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE coupons SET is_used = TRUE, updated_at = NOW() WHERE id = $1
	`, couponID); err != nil {
		return 0, err
	}

	return totalCents * int64(pct) / 100, nil
}

func (r *repository) GetDetail(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, address_id, status, total_cents, total_carbon_grams, created_at, updated_at
		FROM orders WHERE id = $1
	`, orderID).Scan(
		&o.ID,
		&o.UserID,
		&o.AddressID,
		&o.Status,
		&o.TotalCents,
		&o.TotalCarbonGrams,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.product_id, oi.quantity, oi.price_cents_at_purchase, oi.carbon_grams_at_purchase, p.name
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		item := OrderItem{OrderID: o.ID}
		if err := rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.Quantity,
			&item.PriceCentsAtPurchase,
			&item.CarbonGramsAtPurchase,
			&item.ProductName,
		); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}

	return &o, rows.Err()
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, address_id, status, total_cents, total_carbon_grams, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.AddressID,
			&o.Status,
			&o.TotalCents,
			&o.TotalCarbonGrams,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}

	return orders, rows.Err()
}

func (r *repository) GetStatus(ctx context.Context, orderID uuid.UUID) (Status, error) {
	var status Status
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	return status, err
}

// UpdateStatus applies one edge of the state machine. The WHERE clause
// repeats the expected current status so a concurrent transition makes
// this a no-op instead of a lost update.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3
	`, to, orderID, from)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrInvalidTransition
	}

	return nil
}

// MarkPaid is the idempotent PENDING→PAID flip. Zero rows affected means
// the order is missing or already past PENDING; both are reported as a
// non-flip, not an error, so gateway retries stay safe.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3
	`, StatusPaid, orderID, StatusPending)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *repository) GetFanout(ctx context.Context, orderID uuid.UUID) (*FanoutOrder, error) {
	var f FanoutOrder
	err := r.db.QueryRowContext(ctx, `
		SELECT o.id, o.user_id, u.email, COALESCE(u.first_name, ''), o.total_cents, o.total_carbon_grams
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`, orderID).Scan(
		&f.ID,
		&f.UserID,
		&f.UserEmail,
		&f.UserName,
		&f.TotalCents,
		&f.TotalCarbonGrams,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.name, oi.quantity, oi.price_cents_at_purchase, b.id, b.name, ow.email
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN brands b ON b.id = p.brand_id
		JOIN users ow ON ow.id = b.owner_id
		WHERE oi.order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item FanoutItem
		if err := rows.Scan(
			&item.ProductName,
			&item.Quantity,
			&item.PriceCents,
			&item.BrandID,
			&item.BrandName,
			&item.BrandOwnerEmail,
		); err != nil {
			return nil, err
		}
		f.Items = append(f.Items, item)
	}

	return &f, rows.Err()
}

// CancelTx is the compensating action for PENDING orders: flip to
// CANCELLED and put every reserved line back on the shelf, atomically.
func (r *repository) CancelTx(ctx context.Context, orderID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3
	`, StatusCancelled, orderID, StatusPending)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrInvalidTransition
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity FROM order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return err
	}

	type line struct {
		productID uuid.UUID
		quantity  int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range lines {
		if err := r.ledger.Restore(ctx, tx, l.productID, l.quantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}
