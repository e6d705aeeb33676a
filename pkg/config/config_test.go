package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "memory" || cfg.Events.Driver != "memory" || cfg.Lock.Driver != "memory" {
		t.Errorf("Expected memory drivers, got %s/%s/%s", cfg.Store.Driver, cfg.Events.Driver, cfg.Lock.Driver)
	}
	if cfg.Manufacturing.NumberPrefix != "MO" {
		t.Errorf("Expected prefix MO, got %s", cfg.Manufacturing.NumberPrefix)
	}
	if cfg.Lock.TTL != 30*time.Second {
		t.Errorf("Expected lock ttl 30s, got %v", cfg.Lock.TTL)
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
store:
  driver: postgres
manufacturing:
  strict_availability: true
  number_prefix: WH
database:
  host: db.internal
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DB_HOST", "db.override")
	t.Setenv("LOCK_DRIVER", "redis")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Manufacturing.StrictAvailability || cfg.Manufacturing.NumberPrefix != "WH" {
		t.Errorf("Expected strict WH, got %v %s", cfg.Manufacturing.StrictAvailability, cfg.Manufacturing.NumberPrefix)
	}
	if cfg.Database.Host != "db.override" {
		t.Errorf("Expected env to override host, got %s", cfg.Database.Host)
	}
	if cfg.Lock.Driver != "redis" {
		t.Errorf("Expected redis locker, got %s", cfg.Lock.Driver)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("Expected localhost:6379, got %s", cfg.Redis.Addr())
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown store", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"sqlite without path", func(c *Config) { c.Events.Driver = "sqlite"; c.Events.SQLitePath = "" }, true},
		{"unknown lock", func(c *Config) { c.Lock.Driver = "etcd" }, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Config{
				Store:  StoreConfig{Driver: "memory"},
				Events: EventsConfig{Driver: "memory"},
				Lock:   LockConfig{Driver: "memory"},
			}
			tc.mutate(c)
			err := c.Validate()
			if tc.expectError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
