package product

import (
	"github.com/google/uuid"
)

// Product is the catalog's read side as the fulfillment core sees it:
// pricing and impact fields are read-only snapshots sources, stock is the
// one counter this module is allowed to mutate (transactionally).
type Product struct {
	ID          uuid.UUID
	Name        string
	PriceCents  int64
	CarbonGrams int64 // CO2 per unit
	Stock       int
	Brand       Brand
}

type Brand struct {
	ID         uuid.UUID
	Name       string
	OwnerEmail string
}

// StockAlert is handed to the notifier after the owning transaction
// commits; it is never sent from inside the transaction.
type StockAlert struct {
	ProductID   uuid.UUID
	ProductName string
	BrandName   string
	OwnerEmail  string
	Remaining   int
}
