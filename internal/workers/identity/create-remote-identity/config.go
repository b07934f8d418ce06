// internal/workers/identity/create-remote-identity/config.go
package createremoteidentity

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 45 * time.Second,
	}
}
