package utils

import (
	"fmt"
	"sync"
	"time"
)

const orderIDPrefix = "FEE"

// OrderIDGenerator builds order ids of the form FEE-<matric>-<millis>. The
// suffix never repeats within a process even when two ids are requested in
// the same millisecond.
type OrderIDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewOrderIDGenerator() *OrderIDGenerator {
	return &OrderIDGenerator{now: time.Now}
}

func (g *OrderIDGenerator) Next(matricNumber string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UnixMilli()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts

	return fmt.Sprintf("%s-%s-%d", orderIDPrefix, matricNumber, ts)
}
