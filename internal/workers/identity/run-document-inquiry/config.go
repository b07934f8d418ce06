// internal/workers/identity/run-document-inquiry/config.go
package rundocumentinquiry

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 45 * time.Second,
	}
}
