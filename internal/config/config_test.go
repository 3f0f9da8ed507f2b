package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		API:  APIConfig{BaseURL: "https://frontend-take-home-service.fetch.com"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.API.TimeoutSec != 30 || cfg.API.Timeout() != 30*time.Second {
		t.Errorf("expected 30s api timeout, got %d", cfg.API.TimeoutSec)
	}
	if cfg.API.PageSize != 20 {
		t.Errorf("expected page size 20, got %d", cfg.API.PageSize)
	}
	if *cfg.API.SearchRetries != 1 || *cfg.API.BreedsRetries != 2 {
		t.Errorf("expected retries 1/2, got %d/%d", *cfg.API.SearchRetries, *cfg.API.BreedsRetries)
	}
	if cfg.Cache.Driver != CacheNone || cfg.Cache.Enabled() {
		t.Errorf("expected cache disabled by default, got %q", cfg.Cache.Driver)
	}
	if cfg.Cache.BreedsTTLSec != 300 {
		t.Errorf("expected breeds ttl 300, got %d", cfg.Cache.BreedsTTLSec)
	}
	if cfg.Session.CookieName != "pawmatch_session" {
		t.Errorf("unexpected cookie name %q", cfg.Session.CookieName)
	}
	if cfg.Session.IdleTimeout() != time.Hour {
		t.Errorf("expected 1h idle timeout, got %v", cfg.Session.IdleTimeout())
	}
}

func TestApplyDefaults_KeepsExplicitZeroRetries(t *testing.T) {
	zero := 0
	cfg := Config{API: APIConfig{SearchRetries: &zero}}
	cfg.ApplyDefaults()

	if *cfg.API.SearchRetries != 0 {
		t.Errorf("expected explicit 0 retries kept, got %d", *cfg.API.SearchRetries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url is required"},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "absolute URL"},
		{"page size too large", func(c *Config) { c.API.PageSize = 101 }, "api.page_size"},
		{"unknown driver", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
		{"redis without addrs", func(c *Config) { c.Cache.Driver = CacheRedis }, "cache.addrs"},
		{"valkey with addrs", func(c *Config) {
			c.Cache.Driver = CacheValkey
			c.Cache.Addrs = []string{"localhost:6379"}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PAWMATCH_TEST_URL", "https://example.com")

	in := []byte("a: ${PAWMATCH_TEST_URL}\nb: ${PAWMATCH_TEST_MISSING:-fallback}\nc: ${PAWMATCH_TEST_MISSING}")
	got := string(expandEnvVars(in))

	want := "a: https://example.com\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	data := []byte(`http:
  port: 9090
api:
  base_url: ${PAWMATCH_TEST_API:-https://api.example.com}
cache:
  driver: redis
  addrs: ["localhost:6379"]
`)
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), data, 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("unexpected base url %q", cfg.API.BaseURL)
	}
	if !cfg.Cache.Enabled() {
		t.Error("expected cache enabled")
	}
}
