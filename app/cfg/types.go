package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	TrustGateway      bool

	// Pipeline configuration
	FetchTimeout    time.Duration
	GovCacheTTL     time.Duration
	WeatherCacheTTL time.Duration
	WeatherBaseURL  string
	ForecastDays    int
	GuidanceTimeout time.Duration

	// Guidance text generation (optional)
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
