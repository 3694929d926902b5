package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Pipeline counters. Read by the stats endpoint, bumped by the services.
var (
	OrdersCreated      Counter
	OrdersCancelled    Counter
	PaymentsConfirmed  Counter
	PaymentsReplayed   Counter
	PointsEarned       Counter
	PointsRedeemed     Counter
	CouponsIssued      Counter
	PublishFailures    Counter
	WalletConflicts    Counter
	StockAlertsEmitted Counter
)

// Snapshot returns the current counter values for the stats endpoint.
func Snapshot() map[string]uint64 {
	return map[string]uint64{
		"orders_created":       OrdersCreated.Load(),
		"orders_cancelled":     OrdersCancelled.Load(),
		"payments_confirmed":   PaymentsConfirmed.Load(),
		"payments_replayed":    PaymentsReplayed.Load(),
		"points_earned":        PointsEarned.Load(),
		"points_redeemed":      PointsRedeemed.Load(),
		"coupons_issued":       CouponsIssued.Load(),
		"publish_failures":     PublishFailures.Load(),
		"wallet_conflicts":     WalletConflicts.Load(),
		"stock_alerts_emitted": StockAlertsEmitted.Load(),
	}
}
