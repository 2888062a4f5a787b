// internal/workers/assistant/execute-operation/config.go
package executeoperation

import "time"

type Config struct {
	Timeout         time.Duration
	DefaultCapacity int
	// Location is the timezone relative date windows are evaluated in.
	Location *time.Location
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		DefaultCapacity: 4,
		Location:        time.Local,
	}
}
