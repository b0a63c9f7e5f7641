package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Opaque ids look like "order_9f1c2b4a8d3e6f70": a semantic prefix plus a
// 16-char random suffix derived from a fresh UUID.
func NewID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	return prefix + "_" + suffix
}

func NewOrderID() string {
	return NewID("order")
}

func NewOrderItemID() string {
	return NewID("oitem")
}

// orderNumberAlphabet drops 0/O, 1/I/L so the number survives being read
// out over the phone or typed from an SMS.
const orderNumberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewOrderNumber returns a human-facing order number of the form
// ORD-20250614-7GK4QZ-X, where the last segment is a mod-N checksum over
// the random body.
func NewOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}

	body := make([]byte, 6)
	sum := 0
	for i, b := range buf {
		idx := int(b) % len(orderNumberAlphabet)
		body[i] = orderNumberAlphabet[idx]
		sum += idx
	}
	check := orderNumberAlphabet[sum%len(orderNumberAlphabet)]

	return fmt.Sprintf("ORD-%s-%s-%c", now.UTC().Format("20060102"), body, check), nil
}
