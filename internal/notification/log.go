package notification

import (
	"context"

	"ecoshop-be/internal/logger"

	"go.uber.org/zap"
)

// LogNotifier is the fallback when no Kafka brokers are configured.
// Events land in the log instead of a topic.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) OrderPaid(ctx context.Context, event OrderPaidEvent) error {
	logger.FromCtx(ctx).Info("order paid notification",
		zap.String("order_id", event.OrderID),
		zap.String("email", event.Email),
		zap.Int64("total_cents", event.TotalCents),
	)
	return nil
}

func (n *LogNotifier) BrandSale(ctx context.Context, event BrandSaleEvent) error {
	logger.FromCtx(ctx).Info("brand sale notification",
		zap.String("order_id", event.OrderID),
		zap.String("brand", event.BrandName),
		zap.Int64("revenue_cents", event.TotalRevenueCents),
	)
	return nil
}

func (n *LogNotifier) StockAlert(ctx context.Context, event StockAlertEvent) error {
	logger.FromCtx(ctx).Warn("stock alert notification",
		zap.String("product_id", event.ProductID),
		zap.String("product", event.ProductName),
		zap.Int("stock", event.Stock),
	)
	return nil
}

func (n *LogNotifier) Close() {}
