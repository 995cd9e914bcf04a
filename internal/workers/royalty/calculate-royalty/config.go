// internal/workers/royalty/calculate-royalty/config.go
package calculateroyalty

import "time"

// Config carries the brand fee policy the calculation falls back on
// when no dedicated marketing or technology structure is active.
type Config struct {
	Timeout              time.Duration
	DefaultMarketingRate float64
	DefaultTechnologyFee float64
	PaymentDueDays       int
	IdempotencyTTL       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:              30 * time.Second,
		DefaultMarketingRate: 2.0,
		DefaultTechnologyFee: 1500,
		PaymentDueDays:       15,
		IdempotencyTTL:       24 * time.Hour,
	}
}
