package middleware

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate limit tiers. Webhook deliveries get the strict tier because
// gateways retry aggressively on non-2xx responses; trusted internal
// callers identify themselves with a shared secret header.
const (
	limitStrict = rate.Limit(2)
	burstStrict = 5

	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	limitInternal = rate.Limit(100)
	burstInternal = 200
)

const bucketTTL = 3 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	bucketsMu sync.Mutex
	buckets   = map[string]*bucket{}
)

func init() {
	go sweepBuckets(time.Minute)
}

// getVisitor returns the limiter for a bucket key, creating it on
// first sight and refreshing its TTL otherwise.
func getVisitor(key string, limit rate.Limit, burst int) *rate.Limiter {
	bucketsMu.Lock()
	defer bucketsMu.Unlock()

	if b, ok := buckets[key]; ok {
		b.lastSeen = time.Now()
		return b.limiter
	}

	b := &bucket{limiter: rate.NewLimiter(limit, burst), lastSeen: time.Now()}
	buckets[key] = b
	return b.limiter
}

// sweepBuckets drops buckets not seen within the TTL so the map does
// not grow with every IP that ever hit the server.
func sweepBuckets(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		bucketsMu.Lock()
		for key, b := range buckets {
			if time.Since(b.lastSeen) > bucketTTL {
				delete(buckets, key)
			}
		}
		bucketsMu.Unlock()
	}
}

// RateLimitMiddleware rejects requests over their tier's budget with 429.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		// Tier is part of the key: exhausting the strict quota must
		// not lock the same caller out of the general routes.
		key := fmt.Sprintf("ip:%s:%s", ip, tier)

		if !getVisitor(key, limit, burst).Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRateTier picks the policy for a request.
func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	internalKey := os.Getenv("INTERNAL_SECRET_KEY")
	if internalKey != "" && r.Header.Get("X-Service-Auth") == internalKey {
		return limitInternal, burstInternal, "internal"
	}

	if r.URL.Path == "/webhook/stripe" {
		return limitStrict, burstStrict, "strict"
	}

	return limitGeneral, burstGeneral, "general"
}
