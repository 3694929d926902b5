package order

import "errors"

var (
	ErrAddressNotFound   = errors.New("shipping address not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUnauthorized      = errors.New("unauthorized")

	// Coupon consumption failures. Coupons are created by reward
	// redemption and spent exactly once here.
	ErrCouponNotFound = errors.New("coupon code is not valid")
	ErrCouponUsed     = errors.New("coupon has already been used")
	ErrCouponNotOwned = errors.New("coupon belongs to another user")
	ErrCouponExpired  = errors.New("coupon has expired")
)
