// Package reward maps raw attention scores to reward amounts.
package reward

import "math/big"

// DefaultBaseRate is the default curve multiplier.
const DefaultBaseRate = 10

// Calculator computes reward amounts on a sub-linear curve:
//
//	amount = floor(baseRate * log2(1 + rawScore))
//
// The curve is monotonic non-decreasing and Amount(0) == 0 for any rate.
type Calculator struct {
	baseRate uint64
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithBaseRate sets the curve multiplier.
func WithBaseRate(rate uint64) Option {
	return func(c *Calculator) {
		if rate > 0 {
			c.baseRate = rate
		}
	}
}

// NewCalculator creates a Calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{baseRate: DefaultBaseRate}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Amount returns floor(baseRate * log2(1 + rawScore)).
//
// The value is computed exactly in integer arithmetic:
// floor(r*log2(n)) == bitlen(n^r) - 1 for n >= 1, so no floating-point log
// is involved and results are identical on every platform.
func (c *Calculator) Amount(rawScore uint64) uint64 {
	n := new(big.Int).SetUint64(rawScore)
	n.Add(n, big.NewInt(1))
	if rawScore == 0 {
		return 0
	}
	pow := new(big.Int).Exp(n, new(big.Int).SetUint64(c.baseRate), nil)
	return uint64(pow.BitLen() - 1)
}

// BaseRate returns the configured curve multiplier.
func (c *Calculator) BaseRate() uint64 {
	return c.baseRate
}
