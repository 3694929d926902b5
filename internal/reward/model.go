package reward

import (
	"time"

	"github.com/google/uuid"
)

type RewardType string

const (
	TypeDonation RewardType = "DONATION"
	TypeCoupon   RewardType = "COUPON"
	TypeProduct  RewardType = "PRODUCT"
)

// Reward is a redeemable catalog entry. Stock nil means unlimited.
type Reward struct {
	ID           uuid.UUID
	Name         string
	Description  string
	CostInPoints int64
	ImageURL     string
	Stock        *int
	IsActive     bool
	Type         RewardType

	// Type-specific settings, meaningful for COUPON rewards only.
	DiscountPercentage int
	ValidDays          int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Coupon is write-once except for the one-way is_used flip performed by
// the order assembler when the coupon is spent.
type Coupon struct {
	ID                 uuid.UUID
	Code               string
	DiscountPercentage int
	IsUsed             bool
	ExpiresAt          *time.Time
	UserID             uuid.UUID
	SourceRewardID     *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type NewRewardInput struct {
	Name               string
	Description        string
	CostInPoints       int64
	ImageURL           string
	Stock              *int
	Type               RewardType
	DiscountPercentage int
	ValidDays          int
}

// RedemptionResult echoes what the wallet owner gets back: the ledger
// entry id, the exact points spent (which may exceed the cost), and the
// coupon code or donation acknowledgment.
type RedemptionResult struct {
	TransactionID uuid.UUID
	RewardName    string
	SpentPoints   int64
	NewBalance    int64
	CouponCode    string
	DonationAck   string
}
