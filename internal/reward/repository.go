package reward

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecoshop-be/internal/wallet"

	"github.com/google/uuid"
)

type RedeemParams struct {
	UserID   uuid.UUID
	RewardID uuid.UUID
	Amount   int64
}

type Repository interface {
	// RedeemTx runs one attempt of the full redemption transaction.
	// A wallet.ErrVersionConflict return means the caller may retry.
	RedeemTx(ctx context.Context, params RedeemParams) (*RedemptionResult, error)
	GetByID(ctx context.Context, rewardID uuid.UUID) (*Reward, error)
	ListActive(ctx context.Context) ([]*Reward, error)
	Create(ctx context.Context, input NewRewardInput) (*Reward, error)
	ListCoupons(ctx context.Context, userID uuid.UUID, onlyActive bool) ([]*Coupon, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const rewardColumns = `
	id, name, COALESCE(description, ''), cost_in_points, COALESCE(image_url, ''),
	stock, is_active, type, COALESCE(discount_percentage, 0), COALESCE(valid_days, 0),
	created_at, updated_at`

func scanReward(scan func(dest ...any) error) (*Reward, error) {
	var rw Reward
	err := scan(
		&rw.ID,
		&rw.Name,
		&rw.Description,
		&rw.CostInPoints,
		&rw.ImageURL,
		&rw.Stock,
		&rw.IsActive,
		&rw.Type,
		&rw.DiscountPercentage,
		&rw.ValidDays,
		&rw.CreatedAt,
		&rw.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rw, nil
}

// RedeemTx holds steps 1-7 of the redemption contract in one
// transaction: reward lock, stock decrement, versioned wallet debit,
// type branch, REDEEM ledger entry. Any failure rolls all of it back.
func (r *repository) RedeemTx(ctx context.Context, params RedeemParams) (*RedemptionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 1. Load the reward under a row lock; its stock is contended.
	rw, err := scanReward(tx.QueryRowContext(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE id = $1 FOR UPDATE`, params.RewardID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRewardNotFound
	}
	if err != nil {
		return nil, err
	}

	if !rw.IsActive {
		return nil, ErrRewardInactive
	}

	// PRODUCT redemptions have no defined behavior; fail before any
	// state is touched.
	if rw.Type != TypeCoupon && rw.Type != TypeDonation {
		return nil, ErrUnsupportedRewardType
	}

	// 2. The caller chooses how much to spend; it must cover the cost.
	// Excess is spent, not refunded.
	if params.Amount < rw.CostInPoints {
		return nil, ErrAmountBelowCost
	}

	// 3. The wallet must already exist for redemption.
	w, err := wallet.GetForUpdateTx(ctx, tx, params.UserID)
	if err != nil {
		return nil, err
	}
	if w.Balance < params.Amount {
		return nil, wallet.ErrInsufficientBalance
	}

	// 4. Finite stock decrements with the debit or not at all.
	if rw.Stock != nil {
		if *rw.Stock <= 0 {
			return nil, ErrRewardOutOfStock
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE rewards SET stock = stock - 1, updated_at = NOW()
			WHERE id = $1 AND stock > 0
		`, rw.ID)
		if err != nil {
			return nil, err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil, ErrRewardOutOfStock
		}
	}

	// 5. Versioned debit against the locked wallet row.
	if err := wallet.DebitTx(ctx, tx, w, params.Amount); err != nil {
		return nil, err
	}

	result := &RedemptionResult{
		RewardName:  rw.Name,
		SpentPoints: params.Amount,
		NewBalance:  w.Balance - params.Amount,
	}

	metadata := map[string]any{
		"rewardId":   rw.ID.String(),
		"rewardName": rw.Name,
	}

	// 6. Type branch.
	switch rw.Type {
	case TypeCoupon:
		code := GenerateCouponCode()
		expiresAt := time.Now().AddDate(0, 0, rw.ValidDays)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO coupons (id, code, discount_percentage, is_used, expires_at, user_id, source_reward_id)
			VALUES ($1, $2, $3, FALSE, $4, $5, $6)
		`, uuid.New(), code, rw.DiscountPercentage, expiresAt, params.UserID, rw.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to issue coupon: %w", err)
		}

		result.CouponCode = code
		metadata["couponCode"] = code

	case TypeDonation:
		result.DonationAck = fmt.Sprintf("Donación registrada: %s", rw.Name)
		metadata["donationAck"] = result.DonationAck
	}

	// 7. The REDEEM ledger entry ties the redemption to the wallet.
	rewardRef := rw.ID
	entry := &wallet.Transaction{
		WalletID:    w.ID,
		Amount:      -params.Amount,
		Type:        wallet.TypeRedeem,
		ReferenceID: &rewardRef,
		Description: fmt.Sprintf("Canje: %s", rw.Name),
		Metadata:    metadata,
	}
	if err := wallet.AppendTransactionTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result.TransactionID = entry.ID
	return result, nil
}

func (r *repository) GetByID(ctx context.Context, rewardID uuid.UUID) (*Reward, error) {
	rw, err := scanReward(r.db.QueryRowContext(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, rewardID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRewardNotFound
	}
	if err != nil {
		return nil, err
	}
	return rw, nil
}

func (r *repository) ListActive(ctx context.Context) ([]*Reward, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE is_active ORDER BY cost_in_points ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []*Reward
	for rows.Next() {
		rw, err := scanReward(rows.Scan)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, rw)
	}

	return rewards, rows.Err()
}

func (r *repository) Create(ctx context.Context, input NewRewardInput) (*Reward, error) {
	rw, err := scanReward(r.db.QueryRowContext(ctx, `
		INSERT INTO rewards (id, name, description, cost_in_points, image_url, stock, is_active, type, discount_percentage, valid_days)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8, $9)
		RETURNING `+rewardColumns+`
	`,
		uuid.New(),
		input.Name,
		input.Description,
		input.CostInPoints,
		input.ImageURL,
		input.Stock,
		input.Type,
		input.DiscountPercentage,
		input.ValidDays,
	).Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	return rw, nil
}

func (r *repository) ListCoupons(ctx context.Context, userID uuid.UUID, onlyActive bool) ([]*Coupon, error) {
	query := `
		SELECT id, code, discount_percentage, is_used, expires_at, user_id, source_reward_id, created_at, updated_at
		FROM coupons
		WHERE user_id = $1
	`
	if onlyActive {
		query += ` AND NOT is_used AND (expires_at IS NULL OR expires_at > NOW())`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []*Coupon
	for rows.Next() {
		var c Coupon
		if err := rows.Scan(
			&c.ID,
			&c.Code,
			&c.DiscountPercentage,
			&c.IsUsed,
			&c.ExpiresAt,
			&c.UserID,
			&c.SourceRewardID,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		coupons = append(coupons, &c)
	}

	return coupons, rows.Err()
}
