package order

import (
	"context"

	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/metrics"
	"ecoshop-be/internal/notification"
	"ecoshop-be/internal/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	CreateOrder(ctx context.Context, userID, addressID uuid.UUID, items []NewOrderItem, couponCode *string) (*CreateOrderResult, error)
	GetOrderDetail(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status) error
	CancelOrder(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo     Repository
	notifier notification.Notifier
}

func NewService(repo Repository, notifier notification.Notifier) Service {
	return &service{repo: repo, notifier: notifier}
}

// CreateOrder validates the request, runs the assembly transaction, and
// raises any low-stock alerts collected inside it. Alerts go out only
// after commit; a rolled-back reservation must not alert anyone.
func (s *service) CreateOrder(ctx context.Context, userID, addressID uuid.UUID, items []NewOrderItem, couponCode *string) (*CreateOrderResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.String("user_id", userID.String()),
		zap.Int("item_count", len(items)),
	)

	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			log.Warn("invalid quantity", zap.String("product_id", item.ProductID.String()))
			return nil, ErrInvalidQuantity
		}
	}

	o, alerts, err := s.repo.CreateOrderTx(ctx, CreateOrderParams{
		UserID:     userID,
		AddressID:  addressID,
		Items:      items,
		CouponCode: couponCode,
	})
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.publishStockAlerts(ctx, alerts)

	return &CreateOrderResult{
		OrderID:          o.ID,
		TotalCents:       o.TotalCents,
		TotalCarbonGrams: o.TotalCarbonGrams,
	}, nil
}

func (s *service) publishStockAlerts(ctx context.Context, alerts []product.StockAlert) {
	log := logger.FromCtx(ctx)

	for _, alert := range alerts {
		err := s.notifier.StockAlert(ctx, notification.StockAlertEvent{
			ProductID:   alert.ProductID.String(),
			Email:       alert.OwnerEmail,
			BrandName:   alert.BrandName,
			ProductName: alert.ProductName,
			Stock:       alert.Remaining,
		})
		if err != nil {
			log.Error("failed to emit stock alert",
				zap.String("product_id", alert.ProductID.String()),
				zap.Error(err),
			)
			continue
		}
		metrics.StockAlertsEmitted.Inc()
	}
}

// GetOrderDetail lets a user see only their own order.
func (s *service) GetOrderDetail(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && o.UserID != userID {
		return nil, ErrUnauthorized
	}

	return o, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateStatus moves the order one legal edge forward. Cancellation goes
// through CancelOrder because it has to restore stock as well.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status) error {
	if status == StatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	current, err := s.repo.GetStatus(ctx, orderID)
	if err != nil {
		return err
	}

	if !current.CanTransitionTo(status) {
		return ErrInvalidTransition
	}

	return s.repo.UpdateStatus(ctx, orderID, current, status)
}

func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	if err := s.repo.CancelTx(ctx, orderID); err != nil {
		return err
	}

	metrics.OrdersCancelled.Inc()
	logger.FromCtx(ctx).Info("order cancelled, stock restored",
		zap.String("order_id", orderID.String()),
	)

	return nil
}
