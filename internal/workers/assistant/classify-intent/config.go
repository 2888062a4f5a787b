// internal/workers/assistant/classify-intent/config.go
package classifyintent

import "time"

type Config struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	// HistoryTurns is how many recent context messages are shown in the prompt.
	HistoryTurns int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      3 * time.Second,
		MaxTokens:    10,
		Temperature:  0,
		HistoryTurns: 3,
	}
}
