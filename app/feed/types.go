package feed

// Feed processing types

type Feed struct {
	Title         string
	Description   string
	LastBuildDate string
	Items         []Item
}

type Item struct {
	Title       string
	Description string // May contain HTML
	Link        string
	PublishDate string // Raw value, parsed leniently by ParseDate
	GUID        string // Falls back to Link
	Category    *string
}

// Configuration types

type Config struct {
	Name     string            // Derived from filename (without .yml extension)
	URL      string            `yaml:"url"`
	Source   string            `yaml:"source"` // Source tag, e.g. GOV_DAFF
	Region   string            `yaml:"region"` // Region used when classification finds none
	Headers  map[string]string `yaml:"headers"`
	Settings ConfigSettings    `yaml:"settings"`
	Filters  []ConfigFilter    `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled    bool `yaml:"enabled"`
	MaxItems   int  `yaml:"max_items"`
	Timeout    int  `yaml:"timeout"`     // seconds
	ActiveDays int  `yaml:"active_days"` // 0 leaves activeUntil open
	Guidance   bool `yaml:"guidance"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
