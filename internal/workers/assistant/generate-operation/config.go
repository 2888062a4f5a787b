// internal/workers/assistant/generate-operation/config.go
package generateoperation

import "time"

type Config struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     8 * time.Second,
		MaxTokens:   500,
		Temperature: 0,
	}
}
