package payment

import "errors"

var (
	ErrOrderNotPayable  = errors.New("order is not payable")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
