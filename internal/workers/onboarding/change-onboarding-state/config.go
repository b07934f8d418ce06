// internal/workers/onboarding/change-onboarding-state/config.go
package changeonboardingstate

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
