package reward

import (
	"context"
	"errors"

	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/metrics"
	"ecoshop-be/internal/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxRedeemAttempts bounds retries when the wallet debit loses a version
// race against a concurrent credit.
const maxRedeemAttempts = 3

type Service interface {
	Redeem(ctx context.Context, userID, rewardID uuid.UUID, amount int64) (*RedemptionResult, error)
	ListActiveRewards(ctx context.Context) ([]*Reward, error)
	CreateReward(ctx context.Context, input NewRewardInput) (*Reward, error)
	ListCoupons(ctx context.Context, userID uuid.UUID, onlyActive bool) ([]*Coupon, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Redeem(ctx context.Context, userID, rewardID uuid.UUID, amount int64) (*RedemptionResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Redeem"),
		zap.String("user_id", userID.String()),
		zap.String("reward_id", rewardID.String()),
		zap.Int64("amount", amount),
	)

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	params := RedeemParams{UserID: userID, RewardID: rewardID, Amount: amount}

	var lastErr error
	for attempt := 1; attempt <= maxRedeemAttempts; attempt++ {
		result, err := s.repo.RedeemTx(ctx, params)
		if err == nil {
			metrics.PointsRedeemed.Add(uint64(amount))
			if result.CouponCode != "" {
				metrics.CouponsIssued.Inc()
			}

			log.Info("reward redeemed",
				zap.String("transaction_id", result.TransactionID.String()),
				zap.Int64("new_balance", result.NewBalance),
			)
			return result, nil
		}

		if !errors.Is(err, wallet.ErrVersionConflict) {
			log.Warn("redemption rejected", zap.Error(err))
			return nil, err
		}

		metrics.WalletConflicts.Inc()
		log.Warn("wallet version conflict, retrying redemption", zap.Int("attempt", attempt))
		lastErr = err
	}

	return nil, lastErr
}

func (s *service) ListActiveRewards(ctx context.Context) ([]*Reward, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) CreateReward(ctx context.Context, input NewRewardInput) (*Reward, error) {
	if input.Name == "" || input.CostInPoints <= 0 {
		return nil, ErrInvalidReward
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, ErrInvalidReward
	}

	switch input.Type {
	case TypeDonation:
	case TypeCoupon:
		if input.DiscountPercentage <= 0 || input.DiscountPercentage > 100 {
			return nil, ErrInvalidReward
		}
		if input.ValidDays <= 0 {
			return nil, ErrInvalidReward
		}
	default:
		return nil, ErrUnsupportedRewardType
	}

	return s.repo.Create(ctx, input)
}

func (s *service) ListCoupons(ctx context.Context, userID uuid.UUID, onlyActive bool) ([]*Coupon, error) {
	return s.repo.ListCoupons(ctx, userID, onlyActive)
}
