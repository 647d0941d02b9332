package redisx

import (
	"fmt"
	"time"
)

const (
	// Dedup processed events: dedup:{service}:{event_id}
	keyDedup = "dedup:%s:%s"

	// Cached order status: order_status:{order_id}
	keyOrderStatus = "order_status:%d"
)

var (
	TTLDedup       = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
)

func DedupKey(service, eventID string) string {
	return fmt.Sprintf(keyDedup, service, eventID)
}

func OrderStatusKey(orderID int64) string {
	return fmt.Sprintf(keyOrderStatus, orderID)
}
