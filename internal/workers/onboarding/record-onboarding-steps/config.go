// internal/workers/onboarding/record-onboarding-steps/config.go
package recordonboardingsteps

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
