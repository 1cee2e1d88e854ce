package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ponnect/ponnect-alerts/app/feed"
)

const (
	heatWatchThreshold     = 35.0
	heatWarningThreshold   = 38.0
	heatEmergencyThreshold = 42.0
	uvAlertThreshold       = 11.0
)

// City is a tracked forecast location.
type City struct {
	Name      string
	Region    Region
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Cities is the fixed list of capitals polled for forecasts.
var Cities = []City{
	{Name: "Brisbane", Region: RegionQLD, Latitude: -27.4698, Longitude: 153.0251, Timezone: "Australia/Brisbane"},
	{Name: "Sydney", Region: RegionNSW, Latitude: -33.8688, Longitude: 151.2093, Timezone: "Australia/Sydney"},
	{Name: "Melbourne", Region: RegionVIC, Latitude: -37.8136, Longitude: 144.9631, Timezone: "Australia/Melbourne"},
	{Name: "Adelaide", Region: RegionSA, Latitude: -34.9285, Longitude: 138.6007, Timezone: "Australia/Adelaide"},
	{Name: "Perth", Region: RegionWA, Latitude: -31.9505, Longitude: 115.8605, Timezone: "Australia/Perth"},
	{Name: "Hobart", Region: RegionTAS, Latitude: -42.8821, Longitude: 147.3272, Timezone: "Australia/Hobart"},
	{Name: "Darwin", Region: RegionNT, Latitude: -12.4634, Longitude: 130.8456, Timezone: "Australia/Darwin"},
	{Name: "Canberra", Region: RegionACT, Latitude: -35.2809, Longitude: 149.1300, Timezone: "Australia/Sydney"},
}

// Location returns the city's time zone, falling back to UTC when the
// zone database is unavailable.
func (c City) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var (
	heatGuidance = map[Severity][]string{
		SeverityWatch: {
			"Walk dogs early in the morning or late in the evening",
			"Provide constant access to fresh water and shade",
			"Test pavement with the back of your hand before walks",
		},
		SeverityWarning: {
			"Keep dogs indoors during the hottest part of the day",
			"Never leave dogs in parked cars",
			"Watch for heatstroke signs such as heavy panting, drooling and lethargy",
		},
		SeverityEmergency: {
			"Skip walks entirely and keep dogs in cooled rooms",
			"Use cooling mats or damp towels to help dogs stay cool",
			"Contact a vet immediately if heatstroke symptoms appear",
		},
	}

	uvGuidance = []string{
		"Limit sun exposure between 10am and 3pm",
		"Apply pet-safe sunscreen to noses, ears and other exposed skin",
		"Make sure shaded rest areas are available outdoors",
	}
)

func heatSeverity(maxTemp float64) (Severity, bool) {
	switch {
	case maxTemp >= heatEmergencyThreshold:
		return SeverityEmergency, true
	case maxTemp >= heatWarningThreshold:
		return SeverityWarning, true
	case maxTemp >= heatWatchThreshold:
		return SeverityWatch, true
	default:
		return "", false
	}
}

// heatGuidanceFor accumulates guidance from WATCH up to severity.
func heatGuidanceFor(severity Severity) []string {
	var guidance []string
	for _, level := range []Severity{SeverityWatch, SeverityWarning, SeverityEmergency} {
		guidance = append(guidance, heatGuidance[level]...)
		if level == severity {
			break
		}
	}
	return guidance
}

// HeatwaveAlert returns nil below the watch threshold. day is the forecast
// date; only its calendar date in the city's zone is used.
func HeatwaveAlert(city City, maxTemp float64, day time.Time) *Alert {
	severity, ok := heatSeverity(maxTemp)
	if !ok {
		return nil
	}

	titles := map[Severity]string{
		SeverityWatch:     "Heat Watch",
		SeverityWarning:   "Heatwave Warning",
		SeverityEmergency: "Extreme Heat Emergency",
	}

	from, until := forecastWindow(city, day)
	externalID := weatherExternalID("heat", city.Region, from)

	return &Alert{
		ID:          alertID(externalID),
		Title:       fmt.Sprintf("%s - %s", titles[severity], city.Name),
		Message:     fmt.Sprintf("Forecast maximum of %.1f°C in %s on %s. Dogs are vulnerable to heatstroke in these conditions.", maxTemp, city.Name, from.Format("Mon 2 Jan")),
		Region:      city.Region,
		Severity:    severity,
		Type:        TypeHeatwave,
		ActiveFrom:  from,
		ActiveUntil: &until,
		Source:      SourceOpenMeteo,
		Confidence:  ConfidenceHigh,
		Guidance:    heatGuidanceFor(severity),
		ExternalID:  externalID,
	}
}

// UVAlert returns nil below UV index 11.
func UVAlert(city City, uvIndex float64, day time.Time) *Alert {
	if uvIndex < uvAlertThreshold {
		return nil
	}

	from, until := forecastWindow(city, day)
	externalID := weatherExternalID("uv", city.Region, from)

	return &Alert{
		ID:          alertID(externalID),
		Title:       fmt.Sprintf("Extreme UV - %s", city.Name),
		Message:     fmt.Sprintf("UV index forecast to reach %.0f in %s on %s. Dogs with light coats or pink skin can sunburn quickly.", uvIndex, city.Name, from.Format("Mon 2 Jan")),
		Region:      city.Region,
		Severity:    SeverityWarning,
		Type:        TypeOther,
		ActiveFrom:  from,
		ActiveUntil: &until,
		Source:      SourceOpenMeteo,
		Confidence:  ConfidenceHigh,
		Guidance:    append([]string(nil), uvGuidance...),
		ExternalID:  externalID,
	}
}

func forecastWindow(city City, day time.Time) (time.Time, time.Time) {
	loc := city.Location()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return from, from.Add(24 * time.Hour)
}

func weatherExternalID(kind string, region Region, from time.Time) string {
	return fmt.Sprintf("open-meteo-%s-%s-%s", kind, region, from.Format(time.DateOnly))
}

// ForecastDay is one daily record from the forecast API. Missing readings
// are nil.
type ForecastDay struct {
	Date    time.Time
	MaxTemp *float64
	UVIndex *float64
}

type openMeteoResponse struct {
	Daily struct {
		Time             []string   `json:"time"`
		Temperature2mMax []*float64 `json:"temperature_2m_max"`
		UVIndexMax       []*float64 `json:"uv_index_max"`
	} `json:"daily"`
}

// Forecaster reads daily forecasts from an Open-Meteo compatible API.
type Forecaster struct {
	fetcher *feed.Fetcher
	baseURL string
	days    int
	timeout time.Duration
}

func NewForecaster(fetcher *feed.Fetcher, baseURL string, days int, timeout time.Duration) *Forecaster {
	return &Forecaster{
		fetcher: fetcher,
		baseURL: baseURL,
		days:    days,
		timeout: timeout,
	}
}

func (f *Forecaster) Forecast(ctx context.Context, city City) ([]ForecastDay, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(city.Latitude, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(city.Longitude, 'f', 4, 64))
	query.Set("daily", "temperature_2m_max,uv_index_max")
	query.Set("timezone", city.Timezone)
	query.Set("forecast_days", strconv.Itoa(f.days))

	resp, err := f.fetcher.Fetch(ctx, feed.SourceDescriptor{
		Name:    "open-meteo-" + city.Name,
		URL:     f.baseURL + "?" + query.Encode(),
		Headers: map[string]string{"Accept": "application/json"},
		Timeout: f.timeout,
	})
	if err != nil {
		return nil, err
	}

	return decodeForecast(resp.Body, city.Location())
}

func decodeForecast(body string, loc *time.Location) ([]ForecastDay, error) {
	var payload openMeteoResponse
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}

	daily := payload.Daily
	days := make([]ForecastDay, 0, len(daily.Time))
	for i, raw := range daily.Time {
		date, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid forecast date %q: %w", raw, err)
		}

		day := ForecastDay{Date: date}
		if i < len(daily.Temperature2mMax) {
			day.MaxTemp = daily.Temperature2mMax[i]
		}
		if i < len(daily.UVIndexMax) {
			day.UVIndex = daily.UVIndexMax[i]
		}
		days = append(days, day)
	}

	return days, nil
}

// WeatherAlerts derives the heat and UV alerts for one city's forecast.
func WeatherAlerts(city City, days []ForecastDay) []Alert {
	var result []Alert
	for _, day := range days {
		if day.MaxTemp != nil {
			if alert := HeatwaveAlert(city, *day.MaxTemp, day.Date); alert != nil {
				result = append(result, *alert)
			}
		}
		if day.UVIndex != nil {
			if alert := UVAlert(city, *day.UVIndex, day.Date); alert != nil {
				result = append(result, *alert)
			}
		}
	}
	return result
}
