package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIDFormat(t *testing.T) {
	id := NewID("order")
	assert.True(t, strings.HasPrefix(id, "order_"))
	assert.Len(t, id, len("order_")+16)

	suffix := strings.TrimPrefix(id, "order_")
	for _, r := range suffix {
		assert.Contains(t, "0123456789abcdef", string(r))
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewOrderItemID()
		assert.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)
	num, err := NewOrderNumber(now)
	assert.NoError(t, err)

	parts := strings.Split(num, "-")
	assert.Len(t, parts, 4)
	assert.Equal(t, "ORD", parts[0])
	assert.Equal(t, "20250614", parts[1])
	assert.Len(t, parts[2], 6)
	assert.Len(t, parts[3], 1)

	// No ambiguous characters anywhere in the random segments.
	for _, r := range parts[2] + parts[3] {
		assert.Contains(t, orderNumberAlphabet, string(r))
	}
}

func TestNewOrderNumberChecksum(t *testing.T) {
	num, err := NewOrderNumber(time.Now())
	assert.NoError(t, err)

	parts := strings.Split(num, "-")
	sum := 0
	for _, r := range parts[2] {
		sum += strings.IndexRune(orderNumberAlphabet, r)
	}
	assert.Equal(t, string(orderNumberAlphabet[sum%len(orderNumberAlphabet)]), parts[3])
}
