package order

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// CanTransitionTo encodes the only legal edges:
// PENDING→PAID→SHIPPED→COMPLETED, plus PENDING→CANCELLED.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPaid || next == StatusCancelled
	case StatusPaid:
		return next == StatusShipped
	case StatusShipped:
		return next == StatusCompleted
	default:
		return false
	}
}

// Order totals are snapshots fixed at creation; only status may change
// afterwards. They are never recomputed from current product prices.
type Order struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	AddressID        uuid.UUID
	Status           Status
	TotalCents       int64
	TotalCarbonGrams int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Items            []OrderItem
}

// OrderItem is immutable after creation.
type OrderItem struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	ProductID             uuid.UUID
	ProductName           string
	Quantity              int
	PriceCentsAtPurchase  int64
	CarbonGramsAtPurchase int64
}

type NewOrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderResult is what the caller needs to start a checkout session.
type CreateOrderResult struct {
	OrderID          uuid.UUID
	TotalCents       int64
	TotalCarbonGrams int64
}

// FanoutOrder carries everything payment confirmation needs for its
// side effects: buyer contact plus per-line brand ownership.
type FanoutOrder struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	UserEmail        string
	UserName         string
	TotalCents       int64
	TotalCarbonGrams int64
	Items            []FanoutItem
}

type FanoutItem struct {
	ProductName     string
	Quantity        int
	PriceCents      int64
	BrandID         uuid.UUID
	BrandName       string
	BrandOwnerEmail string
}
