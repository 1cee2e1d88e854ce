package alerts

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ponnect/ponnect-alerts/app/feed"
)

const (
	maxMessageLength     = 500
	defaultSourceTimeout = 15 * time.Second
)

// ErrUnparsableFeed is returned when a source body is not a recognisable feed.
var ErrUnparsableFeed = errors.New("unparsable feed")

// GovFeedSource turns one government RSS feed into classified alerts.
type GovFeedSource struct {
	config          *feed.Config
	fetcher         *feed.Fetcher
	parser          *feed.Parser
	filterer        *feed.Filterer
	guidance        GuidanceGenerator
	guidanceTimeout time.Duration
	clock           Clock
}

func NewGovFeedSource(config *feed.Config, fetcher *feed.Fetcher, guidance GuidanceGenerator, guidanceTimeout time.Duration, clock Clock) *GovFeedSource {
	if clock == nil {
		clock = SystemClock
	}
	return &GovFeedSource{
		config:          config,
		fetcher:         fetcher,
		parser:          feed.NewParser(),
		filterer:        feed.NewFilterer(),
		guidance:        guidance,
		guidanceTimeout: guidanceTimeout,
		clock:           clock,
	}
}

func (s *GovFeedSource) Name() string {
	return s.config.Name
}

// Alerts runs fetch, parse and guidance under one deadline taken from the
// source timeout. Alerts built after the deadline carry no guidance.
func (s *GovFeedSource) Alerts(ctx context.Context) ([]Alert, error) {
	descriptor := s.config.Descriptor()
	ctx, cancel := context.WithTimeout(ctx, cmp.Or(descriptor.Timeout, defaultSourceTimeout))
	defer cancel()

	resp, err := s.fetcher.Fetch(ctx, descriptor)
	if err != nil {
		return nil, err
	}

	parsed := s.parser.Parse(resp.Body)
	if parsed == nil {
		return nil, fmt.Errorf("source %s: %w", s.config.Name, ErrUnparsableFeed)
	}

	items := s.filterer.Run(parsed.Items, s.config)
	if limit := s.config.Settings.MaxItems; limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	now := s.clock.Now()
	result := make([]Alert, 0, len(items))
	skipped := 0
	for _, item := range items {
		alert := s.buildAlert(item, now)
		if s.config.Settings.Guidance && s.guidance != nil {
			if ctx.Err() != nil {
				skipped++
			} else {
				alert.Guidance = s.generateGuidance(ctx, alert)
			}
		}
		result = append(result, alert)
	}

	if skipped > 0 {
		slog.Warn("Source deadline reached, guidance skipped", "source", s.config.Name, "skipped", skipped)
	}
	slog.Debug("Source processed", "source", s.config.Name, "items", len(parsed.Items), "alerts", len(result))
	return result, nil
}

func (s *GovFeedSource) buildAlert(item feed.Item, now time.Time) Alert {
	title := feed.StripHTML(item.Title)
	description := feed.StripHTML(item.Description)
	message := feed.Truncate(description, maxMessageLength)
	class := Categorize(title, description, item.Category)

	region := class.Region
	if region == "" {
		region = cmp.Or(Region(s.config.Region), RegionAll)
	}

	activeFrom, ok := feed.ParseDate(item.PublishDate)
	if !ok {
		activeFrom = now
	}

	var activeUntil *time.Time
	if days := s.config.Settings.ActiveDays; days > 0 {
		until := activeFrom.Add(time.Duration(days) * 24 * time.Hour)
		activeUntil = &until
	}

	source := Source(s.config.Source)
	externalID := strings.ToLower(string(source)) + ":" + cmp.Or(item.GUID, item.Link, title)

	return Alert{
		ID:          alertID(externalID),
		Title:       title,
		Message:     cmp.Or(message, title),
		Region:      region,
		Severity:    class.Severity,
		Type:        class.Type,
		ActiveFrom:  activeFrom,
		ActiveUntil: activeUntil,
		Source:      source,
		Confidence:  ConfidenceVerified,
		ExternalID:  externalID,
		Link:        item.Link,
	}
}

// generateGuidance never fails: errors and timeouts yield nil guidance.
func (s *GovFeedSource) generateGuidance(ctx context.Context, alert Alert) []string {
	if ctx.Err() != nil {
		return nil
	}

	callCtx := ctx
	if s.guidanceTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.guidanceTimeout)
		defer cancel()
	}

	guidance, err := s.guidance.GenerateGuidance(callCtx, GuidanceRequest{
		Title:    alert.Title,
		Message:  alert.Message,
		Type:     alert.Type,
		Severity: alert.Severity,
		Region:   alert.Region,
	})
	if err != nil {
		slog.Debug("Guidance unavailable", "source", s.config.Name, "alert", alert.ExternalID, "error", err)
		return nil
	}
	if len(guidance) == 0 {
		return nil
	}
	return guidance
}

// WeatherSource derives heat and UV alerts for one city.
type WeatherSource struct {
	city       City
	forecaster *Forecaster
}

func NewWeatherSource(city City, forecaster *Forecaster) *WeatherSource {
	return &WeatherSource{city: city, forecaster: forecaster}
}

func (s *WeatherSource) Name() string {
	return "open-meteo-" + strings.ToLower(s.city.Name)
}

func (s *WeatherSource) Alerts(ctx context.Context) ([]Alert, error) {
	days, err := s.forecaster.Forecast(ctx, s.city)
	if err != nil {
		return nil, err
	}
	return WeatherAlerts(s.city, days), nil
}

// WeatherSources returns one source per tracked city.
func WeatherSources(forecaster *Forecaster) []AlertSource {
	sources := make([]AlertSource, 0, len(Cities))
	for _, city := range Cities {
		sources = append(sources, NewWeatherSource(city, forecaster))
	}
	return sources
}
