package useragent

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
)

// Desktop is a set of current desktop browser User-Agents, used when rotation
// is enabled without an explicit list.
var Desktop = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// Order selects how a Rotator walks its list.
type Order string

const (
	Sequential Order = "sequential"
	Random     Order = "random"
)

// ParseOrder validates an order name. Empty selects Sequential.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", Sequential:
		return Sequential, nil
	case Random:
		return Random, nil
	}
	return "", fmt.Errorf("unknown user agent order %q", s)
}

// Rotator hands out a User-Agent per request. It is safe for concurrent use.
type Rotator struct {
	uas     []string
	order   Order
	counter atomic.Uint64
}

// NewRotator copies uas into a Rotator. An empty list selects Desktop.
func NewRotator(uas []string, order Order) *Rotator {
	if len(uas) == 0 {
		uas = Desktop
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Rotator{uas: copied, order: order}
}

// Next returns the User-Agent for the next request.
func (r *Rotator) Next() string {
	if len(r.uas) == 0 {
		return ""
	}
	if r.order == Random {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(r.uas))))
		if err == nil {
			return r.uas[n.Int64()]
		}
	}
	idx := r.counter.Add(1) - 1
	return r.uas[idx%uint64(len(r.uas))]
}

// All returns a copy of the rotation list.
func (r *Rotator) All() []string {
	copied := make([]string, len(r.uas))
	copy(copied, r.uas)
	return copied
}
