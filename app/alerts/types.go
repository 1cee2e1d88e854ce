package alerts

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Region string

const (
	RegionQLD Region = "QLD"
	RegionNSW Region = "NSW"
	RegionVIC Region = "VIC"
	RegionSA  Region = "SA"
	RegionWA  Region = "WA"
	RegionTAS Region = "TAS"
	RegionNT  Region = "NT"
	RegionACT Region = "ACT"
	RegionAll Region = "ALL"
)

// States are the eight state and territory codes, without ALL.
var States = []Region{RegionQLD, RegionNSW, RegionVIC, RegionSA, RegionWA, RegionTAS, RegionNT, RegionACT}

// ParseRegion accepts a state code or ALL in any case.
func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToUpper(strings.TrimSpace(s)))
	if r == RegionAll || slices.Contains(States, r) {
		return r, nil
	}
	return "", fmt.Errorf("invalid region: %q", s)
}

type Severity string

const (
	SeverityInfo      Severity = "INFO"
	SeverityWatch     Severity = "WATCH"
	SeverityWarning   Severity = "WARNING"
	SeverityEmergency Severity = "EMERGENCY"
)

// Rank orders severities by urgency, lowest first. Unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityEmergency:
		return 0
	case SeverityWarning:
		return 1
	case SeverityWatch:
		return 2
	case SeverityInfo:
		return 3
	default:
		return 4
	}
}

type Type string

const (
	TypeTick     Type = "TICK"
	TypeSnake    Type = "SNAKE"
	TypeHeatwave Type = "HEATWAVE"
	TypeDisease  Type = "DISEASE"
	TypeOther    Type = "OTHER"
)

var Types = []Type{TypeTick, TypeSnake, TypeHeatwave, TypeDisease, TypeOther}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(Types, t) {
		return t, nil
	}
	return "", fmt.Errorf("invalid type: %q", s)
}

type Source string

const (
	SourceDAFF      Source = "GOV_DAFF"
	SourceNSW       Source = "GOV_NSW"
	SourceQLD       Source = "GOV_QLD"
	SourceVIC       Source = "GOV_VIC"
	SourceOpenMeteo Source = "OPEN_METEO"
	SourceAdmin     Source = "ADMIN"
)

type Confidence string

const (
	ConfidenceVerified Confidence = "VERIFIED"
	ConfidenceHigh     Confidence = "HIGH"
	ConfidenceMedium   Confidence = "MEDIUM"
	ConfidenceLow      Confidence = "LOW"
)

// Alert is the normalised unit every source produces.
type Alert struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Region      Region     `json:"region"`
	Severity    Severity   `json:"severity"`
	Type        Type       `json:"type"`
	ActiveFrom  time.Time  `json:"activeFrom"`
	ActiveUntil *time.Time `json:"activeUntil"`
	Source      Source     `json:"source"`
	Confidence  Confidence `json:"confidence"`
	Guidance    []string   `json:"guidance"`
	ExternalID  string     `json:"externalId"`
	Link        string     `json:"link,omitempty"`
}

// alertID derives a stable identifier from an external id so repeated
// fetches of the same notice produce the same id.
func alertID(externalID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(externalID)).String()
}
