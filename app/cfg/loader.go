package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/alerts.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing alert source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://alerts.ponnect.example)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"Admin API key for alert management (optional)"`
	TrustGateway      bool   `long:"trust-gateway-headers" env:"TRUST_GATEWAY_HEADERS" description:"Accept the admin role from X-User-Role headers set by an authenticating gateway"`

	// Pipeline configuration
	FetchTimeout    time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"15s" description:"Default timeout for a single source fetch"`
	GovCacheTTL     time.Duration `long:"gov-cache-ttl" env:"GOV_CACHE_TTL" default:"30m" description:"Cache lifetime for government feed alerts"`
	WeatherCacheTTL time.Duration `long:"weather-cache-ttl" env:"WEATHER_CACHE_TTL" default:"1h" description:"Cache lifetime for weather alerts"`
	WeatherBaseURL  string        `long:"weather-base-url" env:"WEATHER_BASE_URL" default:"https://api.open-meteo.com/v1/forecast" description:"Open-Meteo forecast endpoint"`
	ForecastDays    int           `long:"forecast-days" env:"FORECAST_DAYS" default:"3" description:"Number of forecast days evaluated per city"`
	GuidanceTimeout time.Duration `long:"guidance-timeout" env:"GUIDANCE_TIMEOUT" default:"8s" description:"Timeout for a single guidance generation call"`

	// Guidance text generation
	LLMAPIKey  string `long:"llm-api-key" env:"LLM_API_KEY" description:"API key for LLM guidance generation (optional, rule table used when empty)"`
	LLMBaseURL string `long:"llm-base-url" env:"LLM_BASE_URL" description:"Chat completion API base URL"`
	LLMModel   string `long:"llm-model" env:"LLM_MODEL" default:"gpt-4o-mini" description:"Model used for guidance generation"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Ponnect Alerts/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Australia/Sydney" description:"Timezone for timestamps (e.g., UTC, Australia/Brisbane)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	// A missing .env file is the normal case in containers.
	_ = godotenv.Load()

	cfg, err := parse(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.ForecastDays < 1 || raw.ForecastDays > 16 {
		return nil, fmt.Errorf("forecast days must be between 1 and 16, got %d", raw.ForecastDays)
	}
	if raw.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be positive, got %d", raw.WorkerCount)
	}
	if raw.SchedulerInterval < 1 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %d", raw.SchedulerInterval)
	}

	return &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		TrustGateway:      raw.TrustGateway,
		FetchTimeout:      raw.FetchTimeout,
		GovCacheTTL:       raw.GovCacheTTL,
		WeatherCacheTTL:   raw.WeatherCacheTTL,
		WeatherBaseURL:    raw.WeatherBaseURL,
		ForecastDays:      raw.ForecastDays,
		GuidanceTimeout:   raw.GuidanceTimeout,
		LLMAPIKey:         raw.LLMAPIKey,
		LLMBaseURL:        raw.LLMBaseURL,
		LLMModel:          raw.LLMModel,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
