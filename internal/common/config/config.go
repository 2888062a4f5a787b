package config

import (
	"fmt"
	"time"
)

type Config struct {
	App       AppConfig               `mapstructure:"app"`
	HTTP      HTTPConfig              `mapstructure:"http"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	APIs      APIsConfig              `mapstructure:"apis"`
	Assistant AssistantConfig         `mapstructure:"assistant"`
	Metering  MeteringConfig          `mapstructure:"metering"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds

	// AdminToken guards the blocklist routes; they are not mounted when empty.
	AdminToken string `mapstructure:"admin_token"`
}

type CamundaConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerAddress string `mapstructure:"broker_address"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
}

type DatabaseConfig struct {
	// Driver selects the tenant store: "postgres" or "memory".
	Driver        string              `mapstructure:"driver"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	AuditIndex string   `mapstructure:"audit_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type APIsConfig struct {
	GenAI struct {
		// Provider is "genai" (internal gateway) or "openai" (any OpenAI-compatible endpoint).
		Provider   string `mapstructure:"provider"`
		BaseURL    string `mapstructure:"base_url"`
		APIKey     string `mapstructure:"api_key"`
		Model      string `mapstructure:"model"`
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"genai"`
}

// AssistantConfig carries per-stage budgets for the natural-language pipeline.
type AssistantConfig struct {
	ClassifyTimeout     int     `mapstructure:"classify_timeout"`   // milliseconds
	GenerateTimeout     int     `mapstructure:"generate_timeout"`   // milliseconds
	SynthesizeTimeout   int     `mapstructure:"synthesize_timeout"` // milliseconds
	ClassifyMaxTokens   int     `mapstructure:"classify_max_tokens"`
	GenerateMaxTokens   int     `mapstructure:"generate_max_tokens"`
	SynthesizeMaxTokens int     `mapstructure:"synthesize_max_tokens"`
	Temperature         float64 `mapstructure:"temperature"`
	UseLLMSynthesis     bool    `mapstructure:"use_llm_synthesis"`
	ContextMessageLimit int     `mapstructure:"context_message_limit"`
	SnapshotSampleSize  int     `mapstructure:"snapshot_sample_size"`
	DefaultCapacity     int     `mapstructure:"default_capacity"`
	Timezone            string  `mapstructure:"timezone"`
}

func (a AssistantConfig) Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Location resolves the configured timezone used for relative date windows.
func (a AssistantConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type MeteringConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	DailyLimit   int  `mapstructure:"daily_limit"`
	MonthlyLimit int  `mapstructure:"monthly_limit"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
