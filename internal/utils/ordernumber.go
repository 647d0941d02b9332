package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const orderSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderNumber builds a human-readable order identifier:
// ORD-YYYYMMDD-XXXXXX with a 6-char random suffix. Uniqueness is
// enforced by the orders.order_number constraint; callers retry on
// collision.
func GenerateOrderNumber() string {
	datePart := time.Now().UTC().Format("20060102")

	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(orderSuffixAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// fallback: time-based entropy
			n = big.NewInt(time.Now().UnixNano() % int64(len(orderSuffixAlphabet)))
		}
		suffix[i] = orderSuffixAlphabet[n.Int64()]
	}

	return fmt.Sprintf("ORD-%s-%s", datePart, suffix)
}

// GenerateInvoiceNumber builds an invoice identifier with date, millis
// and a 4-digit cryptographic random part.
func GenerateInvoiceNumber() string {
	now := time.Now().UTC()

	datePart := now.Format("20060102-150405")
	millis := now.Nanosecond() / int(time.Millisecond)

	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 10000)
	}

	return fmt.Sprintf(
		"INV-%s-%03d-%04d",
		datePart,
		millis,
		n.Int64(),
	)
}
