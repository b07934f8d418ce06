// internal/workers/identity/upload-kyc-documents/config.go
package uploadkycdocuments

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 120 * time.Second,
	}
}
