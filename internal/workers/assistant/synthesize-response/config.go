// internal/workers/assistant/synthesize-response/config.go
package synthesizeresponse

import "time"

type Config struct {
	// UseLLM enables rephrasing successful replies through the completion service.
	UseLLM      bool
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	// ListLimit caps how many items a listing reply names.
	ListLimit int
}

func LoadConfig() *Config {
	return &Config{
		UseLLM:      false,
		Timeout:     4 * time.Second,
		MaxTokens:   150,
		Temperature: 0.3,
		ListLimit:   10,
	}
}
