package reward

import (
	"strings"

	"github.com/google/uuid"
)

const couponCodePrefix = "ECO-"

// GenerateCouponCode returns a human-shareable code like ECO-9F3K2A7B.
// Uniqueness is ultimately enforced by the coupons.code unique index.
func GenerateCouponCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return couponCodePrefix + strings.ToUpper(raw[:8])
}
