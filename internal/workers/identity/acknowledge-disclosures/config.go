// internal/workers/identity/acknowledge-disclosures/config.go
package acknowledgedisclosures

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
