// internal/workers/assistant/natural-language-query/config.go
package naturallanguagequery

import "time"

type Config struct {
	// Timeout bounds one whole request across every stage.
	Timeout time.Duration
	// MaxUtteranceLength rejects oversized input before any stage runs.
	MaxUtteranceLength int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:            30 * time.Second,
		MaxUtteranceLength: 1000,
	}
}
