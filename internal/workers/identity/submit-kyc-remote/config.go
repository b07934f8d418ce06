// internal/workers/identity/submit-kyc-remote/config.go
package submitkycremote

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
