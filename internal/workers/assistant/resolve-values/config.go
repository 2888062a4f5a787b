// internal/workers/assistant/resolve-values/config.go
package resolvevalues

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
