// internal/workers/dispute/resolve-dispute/config.go
package resolvedispute

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
