package payment

import (
	"context"
	"fmt"

	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/metrics"
	"ecoshop-be/internal/notification"
	"ecoshop-be/internal/order"
	"ecoshop-be/internal/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	StartCheckout(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutSession, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	orders   order.Repository
	wallet   wallet.Service
	notifier notification.Notifier
	gateway  Gateway
}

func NewService(orders order.Repository, walletSvc wallet.Service, notifier notification.Notifier, gateway Gateway) Service {
	return &service{
		orders:   orders,
		wallet:   walletSvc,
		notifier: notifier,
		gateway:  gateway,
	}
}

// StartCheckout opens the external checkout session for a PENDING order
// owned by the caller.
func (s *service) StartCheckout(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutSession, error) {
	f, err := s.orders.GetFanout(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if f.UserID != userID {
		return nil, order.ErrOrderNotFound
	}

	status, err := s.orders.GetStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if status != order.StatusPending {
		return nil, ErrOrderNotPayable
	}

	return s.gateway.CreateCheckoutSession(ctx, orderID, f.TotalCents, f.UserEmail)
}

// ConfirmPayment is the idempotent inbound edge from the gateway. The
// conditional PENDING→PAID flip is the single source of truth: once it
// reports no flip, every retry is a defined-success no-op. Fan-out
// effects run after the flip and never undo it; each failure is logged
// and the wallet credit carries the order id so a replay cannot credit
// twice.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID) error {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "ConfirmPayment"),
		zap.String("order_id", orderID.String()),
	)

	flipped, err := s.orders.MarkPaid(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	if !flipped {
		metrics.PaymentsReplayed.Inc()
		log.Info("order missing or not pending, confirmation is a no-op")
		return nil
	}

	metrics.PaymentsConfirmed.Inc()
	log.Info("order marked as PAID")

	f, err := s.orders.GetFanout(ctx, orderID)
	if err != nil {
		// The payment is confirmed; recovery replays the fan-out using
		// the order id as the idempotency key.
		log.Error("failed to load order for fan-out", zap.Error(err))
		return nil
	}

	s.notifyUser(ctx, f)
	s.notifyBrands(ctx, f)
	s.creditWallet(ctx, f)

	return nil
}

func (s *service) notifyUser(ctx context.Context, f *order.FanoutOrder) {
	err := s.notifier.OrderPaid(ctx, notification.OrderPaidEvent{
		OrderID:    f.ID.String(),
		Email:      f.UserEmail,
		Name:       f.UserName,
		TotalCents: f.TotalCents,
		CO2Grams:   f.TotalCarbonGrams,
	})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to emit order paid notification",
			zap.String("order_id", f.ID.String()),
			zap.Error(err),
		)
	}
}

// notifyBrands groups the order's lines by owning brand and emits one
// sale event per brand with aggregated revenue.
func (s *service) notifyBrands(ctx context.Context, f *order.FanoutOrder) {
	log := logger.FromCtx(ctx)

	grouped := make(map[uuid.UUID]*notification.BrandSaleEvent)
	var brandOrder []uuid.UUID

	for _, item := range f.Items {
		event, ok := grouped[item.BrandID]
		if !ok {
			event = &notification.BrandSaleEvent{
				OrderID:   f.ID.String(),
				Email:     item.BrandOwnerEmail,
				BrandName: item.BrandName,
			}
			grouped[item.BrandID] = event
			brandOrder = append(brandOrder, item.BrandID)
		}

		event.Items = append(event.Items, notification.BrandSaleItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			PriceCents:  item.PriceCents,
		})
		event.TotalRevenueCents += item.PriceCents * int64(item.Quantity)
	}

	for _, brandID := range brandOrder {
		if err := s.notifier.BrandSale(ctx, *grouped[brandID]); err != nil {
			log.Error("failed to emit brand sale notification",
				zap.String("order_id", f.ID.String()),
				zap.String("brand_id", brandID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *service) creditWallet(ctx context.Context, f *order.FanoutOrder) {
	points, err := s.wallet.CreditForOrder(ctx, f.UserID, f.ID, f.TotalCents, f.TotalCarbonGrams)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to credit wallet for paid order",
			zap.String("order_id", f.ID.String()),
			zap.Error(err),
		)
		return
	}

	if points > 0 {
		logger.FromCtx(ctx).Info("wallet credited for paid order",
			zap.String("order_id", f.ID.String()),
			zap.Int64("points", points),
		)
	}
}
