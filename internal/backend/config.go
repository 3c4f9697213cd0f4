package backend

import (
	"errors"
	"fmt"
	"strings"

	"finanzas/internal/config"
)

// FromAppConfig picks the persistence settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type %q (want one of %s)",
			appConfig.DataBackend, strings.Join(BackendTypeStrings(), ", "))
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate checks the settings the chosen backend needs.
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
		if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
			return errors.New("AMQP exchange and queue are required when AMQP URL is set")
		}
	case MemoryBackend:
		// A worker process cannot see an in-memory store, so AMQP is ignored.
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

// BackendTypes lists the supported backends, preferred first.
func BackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// BackendTypeStrings is BackendTypes as strings.
func BackendTypeStrings() []string {
	types := BackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
