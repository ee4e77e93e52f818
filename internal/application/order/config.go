package order

import "time"

// Config bounds the external collaborator calls. The specific values are not
// load-bearing for correctness; what matters is that a definitive failure
// always triggers the compensation path exactly once, and that only
// transient payment errors are retried (the order id is the idempotency key).
type Config struct {
	RiskTimeout     time.Duration
	PaymentTimeout  time.Duration
	ShippingTimeout time.Duration
	PublishTimeout  time.Duration
	PaymentAttempts int
	PaymentBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.RiskTimeout <= 0 {
		c.RiskTimeout = 2 * time.Second
	}
	if c.PaymentTimeout <= 0 {
		c.PaymentTimeout = 5 * time.Second
	}
	if c.ShippingTimeout <= 0 {
		c.ShippingTimeout = 5 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 300 * time.Millisecond
	}
	if c.PaymentAttempts <= 0 {
		c.PaymentAttempts = 3
	}
	if c.PaymentBackoff <= 0 {
		c.PaymentBackoff = 100 * time.Millisecond
	}
	return c
}
