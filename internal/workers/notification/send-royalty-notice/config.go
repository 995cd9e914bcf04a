// internal/workers/notification/send-royalty-notice/config.go
package sendroyaltynotice

import "time"

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      20 * time.Second,
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "facturacion@prmcms.com",
	}
}
