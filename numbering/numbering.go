/*
Package numbering generates account numbers.

PURPOSE:
  Products can mark account numbers as system-generated; the closure
  orchestrator and the application path then ask this collaborator for the
  next number. The sequential generator is deliberately simple: a prefix,
  the product id, and a zero-padded counter.
*/
package numbering

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/deposit-engine/deposit"
)

// Sequential issues prefixed, per-product sequential account numbers.
type Sequential struct {
	Prefix string

	mu       sync.Mutex
	counters map[string]int
}

func NewSequential(prefix string) *Sequential {
	return &Sequential{Prefix: prefix, counters: make(map[string]int)}
}

var _ deposit.AccountNumberGenerator = (*Sequential)(nil)

func (s *Sequential) Next(_ context.Context, productID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[productID]++
	return fmt.Sprintf("%s-%s-%06d", s.Prefix, productID, s.counters[productID]), nil
}
