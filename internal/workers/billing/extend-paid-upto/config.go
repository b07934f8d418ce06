// internal/workers/billing/extend-paid-upto/config.go
package extendpaidupto

import "time"

type Config struct {
	Timeout time.Duration
	// Period is the paid period that starts on the approval date.
	Period time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
		Period:  30 * 24 * time.Hour,
	}
}
