package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var validRegions = []string{"QLD", "NSW", "VIC", "SA", "WA", "TAS", "NT", "ACT", "ALL"}

// ConfigCache holds the government feed sources, loaded from one YAML file
// per source.
type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

// Run loads every *.yml in the sources directory. When the directory is
// missing or empty the built-in sources are used instead.
func (cc *ConfigCache) Run() error {
	files := []string{}
	if _, err := os.Stat(cc.sourcesDir); err == nil {
		files, err = filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
		if err != nil {
			return fmt.Errorf("failed to find YML files: %w", err)
		}
	}

	if len(files) == 0 {
		slog.Info("No source files found, using built-in sources", "dir", cc.sourcesDir)
		return cc.loadDefaults()
	}

	for _, file := range files {
		sourceName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source loaded", "source", sourceName, "enabled", config.Settings.Enabled, "region", config.Region)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := cc.getConfigFilePath(sourceName)
	sourceConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	sourceConfig.Name = sourceName

	if err := validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return sourceConfig, nil
}

// GetEnabledConfigs returns enabled sources sorted by name so fan-out order
// is stable between runs.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabled := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Settings.Enabled {
			enabled = append(enabled, v)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Name < enabled[j].Name })
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) loadDefaults() error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	for _, sourceConfig := range DefaultConfigs() {
		if err := validateConfig(sourceConfig); err != nil {
			return fmt.Errorf("invalid built-in source %s: %w", sourceConfig.Name, err)
		}
		cc.cache[sourceConfig.Name] = sourceConfig
	}
	return nil
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sourceConfig := Config{Settings: ConfigSettings{Enabled: true, Guidance: true}}
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&sourceConfig)
	return &sourceConfig, nil
}

func applyDefaults(sourceConfig *Config) {
	if sourceConfig.Settings.MaxItems == 0 {
		sourceConfig.Settings.MaxItems = 50
	}
	if sourceConfig.Settings.Timeout == 0 {
		sourceConfig.Settings.Timeout = 15
	}
	sourceConfig.Source = strings.ToUpper(strings.TrimSpace(sourceConfig.Source))
	sourceConfig.Region = strings.ToUpper(strings.TrimSpace(sourceConfig.Region))
	if sourceConfig.Region == "" {
		sourceConfig.Region = "ALL"
	}
}

func validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	requiredFields := map[string]string{
		"source name": sourceConfig.Name,
		"source URL":  sourceConfig.URL,
		"source tag":  sourceConfig.Source,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if !slices.Contains(validRegions, sourceConfig.Region) {
		return fmt.Errorf("invalid region: %s", sourceConfig.Region)
	}

	nonNegativeFields := map[string]int{
		"max items":   sourceConfig.Settings.MaxItems,
		"timeout":     sourceConfig.Settings.Timeout,
		"active days": sourceConfig.Settings.ActiveDays,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	validFields := map[string]bool{
		"title":       true,
		"description": true,
		"category":    true,
	}

	for i, filter := range sourceConfig.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}

// Descriptor returns the fetch parameters for the source.
func (c *Config) Descriptor() SourceDescriptor {
	return SourceDescriptor{
		Name:    c.Name,
		URL:     c.URL,
		Headers: c.Headers,
		Timeout: time.Duration(c.Settings.Timeout) * time.Second,
	}
}

// DefaultConfigs are the government feeds polled when no source files exist.
func DefaultConfigs() []*Config {
	defaults := []*Config{
		{
			Name:   "daff",
			URL:    "https://www.outbreak.gov.au/rss.xml",
			Source: "GOV_DAFF",
			Region: "ALL",
			Headers: map[string]string{
				"Accept": "application/rss+xml, application/xml, text/xml",
			},
			Settings: ConfigSettings{Enabled: true, Guidance: true},
		},
		{
			Name:   "nsw-dpi",
			URL:    "https://www.dpi.nsw.gov.au/about-us/media-centre/releases/rss",
			Source: "GOV_NSW",
			Region: "NSW",
			Headers: map[string]string{
				"Accept": "application/rss+xml, application/xml, text/xml",
			},
			Settings: ConfigSettings{Enabled: true, Guidance: true},
			Filters: []ConfigFilter{
				{
					Field:    "title",
					Includes: []string{"dog", "pet", "animal", "tick", "snake", "biosecurity", "disease", "heat"},
				},
			},
		},
	}
	for _, d := range defaults {
		applyDefaults(d)
	}
	return defaults
}
