package wallet

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TypeEarn   TransactionType = "EARN"
	TypeRedeem TransactionType = "REDEEM"
	TypeAdjust TransactionType = "ADJUST"
	TypeExpire TransactionType = "EXPIRE"
)

// Wallet holds the per-user points balance. Version is the optimistic
// concurrency counter: every balance mutation must carry the version it
// read and bumps it by one.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   int64
	Level     string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an append-only ledger entry. The invariant the tests
// hold the ledger to: a wallet's balance equals the sum of its
// transaction amounts at all times.
type Transaction struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	Amount      int64
	Type        TransactionType
	ReferenceID *uuid.UUID
	Description string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Reconciliation compares a wallet's cached balance against the sum of
// its ledger. Drift is balance minus ledger sum; anything but zero means
// a mutation bypassed the ledger.
type Reconciliation struct {
	WalletID   uuid.UUID
	Balance    int64
	LedgerSum  int64
	Drift      int64
	Consistent bool
}
