package wallet

import (
	"context"
	"fmt"

	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCreditAttempts bounds the optimistic retry loop. Conflicts past the
// bound surface as ErrVersionConflict, a transient failure.
const maxCreditAttempts = 3

const historyLimit = 20

type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	GetHistory(ctx context.Context, userID uuid.UUID) ([]*Transaction, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64, description string, referenceID *uuid.UUID, metadata map[string]any) (int64, error)
	CreditForOrder(ctx context.Context, userID, orderID uuid.UUID, totalCents, co2Grams int64) (int64, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*Reconciliation, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// GetBalance creates the wallet lazily on first access.
func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetOrCreate(ctx, userID)
}

func (s *service) GetHistory(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	w, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.repo.History(ctx, w.ID, historyLimit)
}

func (s *service) Credit(ctx context.Context, userID uuid.UUID, amount int64, description string, referenceID *uuid.UUID, metadata map[string]any) (int64, error) {
	return s.credit(ctx, userID, amount, "", description, referenceID, metadata)
}

// CreditForOrder is the earn path of the payment fan-out: derive the
// current eco-level from lifetime impact, run the points formula, and
// credit with the order id as the idempotency reference.
func (s *service) CreditForOrder(ctx context.Context, userID, orderID uuid.UUID, totalCents, co2Grams int64) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "CreditForOrder"),
		zap.String("user_id", userID.String()),
		zap.String("order_id", orderID.String()),
	)

	lifetime, err := s.repo.LifetimeCarbonGrams(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate lifetime impact: %w", err)
	}

	level, _ := LevelForCarbon(lifetime)
	points, breakdown := CalculatePoints(totalCents, co2Grams, level)

	if points <= 0 {
		log.Info("order yields no points, skipping credit")
		return 0, nil
	}

	description := fmt.Sprintf("Premio por Orden #%s", orderID.String()[:8])
	metadata := map[string]any{
		"orderId":       orderID.String(),
		"co2SavedGrams": co2Grams,
		"breakdown":     breakdown,
	}

	credited, err := s.credit(ctx, userID, points, level, description, &orderID, metadata)
	if err != nil {
		return 0, err
	}

	if credited > 0 {
		log.Info("points credited",
			zap.Int64("points", credited),
			zap.String("level", level),
		)
	}

	return credited, nil
}

// Reconcile checks the ledger invariant for one wallet: the cached
// balance must equal the sum of its transaction amounts. Drift means a
// mutation bypassed the ledger and is worth an alert, not an auto-fix.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID) (*Reconciliation, error) {
	w, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sum, err := s.repo.SumTransactions(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum wallet ledger: %w", err)
	}

	rec := &Reconciliation{
		WalletID:   w.ID,
		Balance:    w.Balance,
		LedgerSum:  sum,
		Drift:      w.Balance - sum,
		Consistent: w.Balance == sum,
	}

	if !rec.Consistent {
		logger.FromCtx(ctx).Error("wallet balance drifted from its ledger",
			zap.String("wallet_id", w.ID.String()),
			zap.Int64("balance", rec.Balance),
			zap.Int64("ledger_sum", rec.LedgerSum),
			zap.Int64("drift", rec.Drift),
		)
	}

	return rec, nil
}

// credit runs the bounded optimistic loop: read the wallet, apply the
// versioned update, re-read and retry on conflict. A duplicate reference
// is a replay and reports zero points without error.
func (s *service) credit(ctx context.Context, userID uuid.UUID, amount int64, level, description string, referenceID *uuid.UUID, metadata map[string]any) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	log := logger.FromCtx(ctx).With(
		zap.String("method", "credit"),
		zap.String("user_id", userID.String()),
		zap.Int64("amount", amount),
	)

	for attempt := 1; attempt <= maxCreditAttempts; attempt++ {
		w, err := s.repo.GetOrCreate(ctx, userID)
		if err != nil {
			return 0, err
		}

		nextLevel := level
		if nextLevel == "" {
			nextLevel = w.Level
		}

		outcome, err := s.repo.ApplyCredit(ctx, ApplyCreditParams{
			WalletID:        w.ID,
			ExpectedVersion: w.Version,
			Amount:          amount,
			Level:           nextLevel,
			ReferenceID:     referenceID,
			Description:     description,
			Metadata:        metadata,
		})
		if err != nil {
			return 0, err
		}

		if outcome.Duplicate {
			log.Info("duplicate earn reference, treating credit as replayed")
			return 0, nil
		}

		if outcome.Applied {
			metrics.PointsEarned.Add(uint64(amount))
			return amount, nil
		}

		metrics.WalletConflicts.Inc()
		log.Warn("wallet version conflict, retrying credit", zap.Int("attempt", attempt))
	}

	return 0, ErrVersionConflict
}
