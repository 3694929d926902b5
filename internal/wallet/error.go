package wallet

import "errors"

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrVersionConflict surfaces after the bounded optimistic retry is
	// exhausted; callers may treat it as transient.
	ErrVersionConflict = errors.New("wallet version conflict")
)
