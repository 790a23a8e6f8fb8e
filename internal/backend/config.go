package backend

import (
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/storage"
)

// Config holds configuration for backend creation
type Config struct {
	Dialect storage.Dialect
	DSN     string

	// AMQP is optional; empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Dialect:      storage.Dialect(appConfig.DataBackend),
		DSN:          appConfig.DSN(),
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.Dialect.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Dialect)
	}
	if c.DSN == "" {
		switch c.Dialect {
		case storage.SQLite:
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		case storage.Postgres:
			return fmt.Errorf("PostgreSQL URL is required for postgres backend")
		}
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP is enabled")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []storage.Dialect {
	return []storage.Dialect{storage.SQLite, storage.Postgres}
}
