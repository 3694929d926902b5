package notification

import "context"

// Event payloads handed to the external notifier. Rendering and delivery
// (email templates, SMTP) live outside this service; the core only emits
// requests. Every event carries the id that makes redelivery idempotent.

type OrderPaidEvent struct {
	OrderID    string `json:"orderId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	TotalCents int64  `json:"totalCents"`
	CO2Grams   int64  `json:"co2SavedGrams"`
}

type BrandSaleItem struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	PriceCents  int64  `json:"priceCents"`
}

type BrandSaleEvent struct {
	OrderID           string          `json:"orderId"`
	Email             string          `json:"email"`
	BrandName         string          `json:"brandName"`
	TotalRevenueCents int64           `json:"totalRevenueCents"`
	Items             []BrandSaleItem `json:"items"`
}

type StockAlertEvent struct {
	ProductID   string `json:"productId"`
	Email       string `json:"email"`
	BrandName   string `json:"brandName"`
	ProductName string `json:"productName"`
	Stock       int    `json:"stock"`
}

// Notifier is fire-and-forget: implementations must not block the
// calling transaction and failures are for the caller to log, not retry.
type Notifier interface {
	OrderPaid(ctx context.Context, event OrderPaidEvent) error
	BrandSale(ctx context.Context, event BrandSaleEvent) error
	StockAlert(ctx context.Context, event StockAlertEvent) error
	Close()
}
