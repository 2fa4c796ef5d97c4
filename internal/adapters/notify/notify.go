// Package notify hands detected deal ids to the external notification
// dispatcher through a redis stream outbox. Delivery beyond the stream is
// the dispatcher's concern; this side guarantees at most one enqueue per
// deal transition.
package notify

import (
	"context"
	"fmt"
	"strconv"

	rd "github.com/redis/go-redis/v9"
)

// Dispatcher accepts one deal enqueue.
type Dispatcher interface {
	EnqueueDeal(ctx context.Context, dealID string, productID uint, discountPct float64) error
}

// RedisDispatcher appends deal events to a redis stream.
type RedisDispatcher struct {
	rdb    *rd.Client
	stream string
}

// NewRedisDispatcher creates the stream-backed dispatcher.
func NewRedisDispatcher(rdb *rd.Client, stream string) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb, stream: stream}
}

// EnqueueDeal appends one event. Consumers read it with XREADGROUP and ack.
func (d *RedisDispatcher) EnqueueDeal(ctx context.Context, dealID string, productID uint, discountPct float64) error {
	err := d.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: d.stream,
		Values: map[string]interface{}{
			"deal_id":      dealID,
			"product_id":   strconv.FormatUint(uint64(productID), 10),
			"discount_pct": strconv.FormatFloat(discountPct, 'f', 2, 64),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd deal %s: %w", dealID, err)
	}
	return nil
}
