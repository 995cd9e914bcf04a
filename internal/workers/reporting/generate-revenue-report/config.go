// internal/workers/reporting/generate-revenue-report/config.go
package generaterevenuereport

import "time"

type Config struct {
	Timeout     time.Duration
	ReportIndex string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		ReportIndex: "revenue-reports",
	}
}
