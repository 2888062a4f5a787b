// internal/workers/assistant/build-snapshot/config.go
package buildsnapshot

import "time"

type Config struct {
	Timeout    time.Duration
	SampleSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    5 * time.Second,
		SampleSize: 5,
	}
}
