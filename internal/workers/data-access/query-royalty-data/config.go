// internal/workers/data-access/query-royalty-data/config.go
package queryroyaltydata

import "time"

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      20 * time.Second,
		DefaultLimit: 50,
		MaxLimit:     500,
	}
}
