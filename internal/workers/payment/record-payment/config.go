// internal/workers/payment/record-payment/config.go
package recordpayment

import "time"

type Config struct {
	Timeout        time.Duration
	IdempotencyTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        15 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
	}
}
