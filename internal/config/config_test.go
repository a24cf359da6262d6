package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.EventStoreDriver != DriverSQLite {
		t.Errorf("Expected sqlite driver by default, got %s", cfg.EventStoreDriver)
	}
	if cfg.AgentVersion != "gemini-2.5-pro" {
		t.Errorf("Unexpected default agent version %s", cfg.AgentVersion)
	}
	if len(cfg.SearchImportURIs) != 1 || cfg.SearchImportURIs[0] != "gs://agentic-supplychain/policies/*" {
		t.Errorf("Unexpected default import URIs %v", cfg.SearchImportURIs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("EVENT_STORE_DRIVER", "MONGO")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/controltower")
	t.Setenv("BACKEND_TIMEOUT", "750ms")
	t.Setenv("BACKEND_RETRIES", "2")
	t.Setenv("LIMIT_SEED", "42")
	t.Setenv("SEARCH_RATE_LIMIT", "2.5")
	t.Setenv("SEARCH_IMPORT_URIS", "gs://a/*, ,gs://b/*")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Expected port 9000, got %s", cfg.Port)
	}
	if cfg.EventStoreDriver != DriverMongo {
		t.Errorf("Expected mongo driver, got %s", cfg.EventStoreDriver)
	}
	if cfg.LimitSeed != 42 || cfg.SearchRateLimit != 2.5 {
		t.Errorf("Unexpected numeric config: seed=%d rate=%v", cfg.LimitSeed, cfg.SearchRateLimit)
	}
	if len(cfg.SearchImportURIs) != 2 {
		t.Errorf("Expected two import URIs, got %v", cfg.SearchImportURIs)
	}

	p := cfg.BackoffPolicy()
	if p.Timeout != 750*time.Millisecond || p.Retries != 2 {
		t.Errorf("Unexpected backoff policy %+v", p)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")
	t.Setenv("BACKEND_RETRIES", "many")

	cfg := Load()
	if cfg.BackendTimeout != 5*time.Second {
		t.Errorf("Expected default timeout, got %v", cfg.BackendTimeout)
	}
	if cfg.BackendRetries != 1 {
		t.Errorf("Expected default retries, got %d", cfg.BackendRetries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.EventStoreDriver = "postgres" }},
		{"mongo without uri", func(c *Config) { c.EventStoreDriver = DriverMongo; c.MongoDBURI = "" }},
		{"mysql without url", func(c *Config) { c.EventStoreDriver = DriverMySQL; c.DatabaseURL = "" }},
		{"bad cron", func(c *Config) { c.HealthCheckCron = "every five minutes" }},
		{"negative retries", func(c *Config) { c.BackendRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
