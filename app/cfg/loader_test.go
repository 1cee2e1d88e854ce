package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.DBPath != "./data/alerts.db" {
		t.Errorf("Expected DB path './data/alerts.db', got '%s'", cfg.DBPath)
	}
	if cfg.GovCacheTTL != 30*time.Minute {
		t.Errorf("Expected gov cache TTL 30m, got %v", cfg.GovCacheTTL)
	}
	if cfg.WeatherCacheTTL != time.Hour {
		t.Errorf("Expected weather cache TTL 1h, got %v", cfg.WeatherCacheTTL)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("Expected fetch timeout 15s, got %v", cfg.FetchTimeout)
	}
	if cfg.ForecastDays != 3 {
		t.Errorf("Expected 3 forecast days, got %d", cfg.ForecastDays)
	}
	if cfg.LLMAPIKey != "" {
		t.Errorf("Expected empty LLM API key, got '%s'", cfg.LLMAPIKey)
	}
	if cfg.TrustGateway {
		t.Error("Expected gateway headers to be untrusted by default")
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestParseFlags(t *testing.T) {
	cfg, err := parse([]string{
		"--port", "9090",
		"--api-key", "secret",
		"--gov-cache-ttl", "5m",
		"--forecast-days", "7",
		"--trust-gateway-headers",
		"--debug",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key 'secret', got '%s'", cfg.APIAccessKey)
	}
	if cfg.GovCacheTTL != 5*time.Minute {
		t.Errorf("Expected gov cache TTL 5m, got %v", cfg.GovCacheTTL)
	}
	if cfg.ForecastDays != 7 {
		t.Errorf("Expected 7 forecast days, got %d", cfg.ForecastDays)
	}
	if !cfg.TrustGateway {
		t.Error("Expected gateway headers to be trusted")
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("WEATHER_BASE_URL", "http://localhost:9999/forecast")
	t.Setenv("WORKER_COUNT", "4")

	cfg, err := parse([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.WeatherBaseURL != "http://localhost:9999/forecast" {
		t.Errorf("Expected weather base URL from env, got '%s'", cfg.WeatherBaseURL)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("Expected worker count 4, got %d", cfg.WorkerCount)
	}
}

func TestParseRejectsInvalidForecastDays(t *testing.T) {
	if _, err := parse([]string{"--forecast-days", "0"}); err == nil {
		t.Error("Expected error for zero forecast days")
	}
	if _, err := parse([]string{"--forecast-days", "30"}); err == nil {
		t.Error("Expected error for too many forecast days")
	}
}

func TestParseRejectsInvalidSchedulerInterval(t *testing.T) {
	if _, err := parse([]string{"--scheduler-interval=0"}); err == nil {
		t.Error("Expected error for zero scheduler interval")
	}
	if _, err := parse([]string{"--scheduler-interval=-5"}); err == nil {
		t.Error("Expected error for negative scheduler interval")
	}
}

func TestParseHelp(t *testing.T) {
	cfg, err := parse([]string{"--help"})
	if err != nil {
		t.Fatalf("Expected no error for help, got: %v", err)
	}
	if cfg != nil {
		t.Error("Expected nil configuration when help is requested")
	}
}
