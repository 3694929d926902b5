package reward

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCouponCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code := GenerateCouponCode()

		assert.True(t, strings.HasPrefix(code, "ECO-"))
		assert.Len(t, code, 12)
		assert.Equal(t, strings.ToUpper(code), code)
		assert.False(t, seen[code], "codes should not repeat: %s", code)
		seen[code] = true
	}
}
