package database

import (
	"errors"
	"fmt"
	"time"
)

// Persisted severities. The pipeline's WATCH level has no stored equivalent.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

var (
	Regions    = []string{"QLD", "NSW", "VIC", "SA", "WA", "TAS", "NT", "ACT"}
	Severities = []string{SeverityInfo, SeverityWarning, SeverityCritical}
	Types      = []string{"TICK", "SNAKE", "HEATWAVE", "DISEASE", "OTHER"}
)

var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected field value on create or update.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Alert is an admin-authored alert.
type Alert struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Region      string     `json:"region"`
	Severity    string     `json:"severity"`
	Type        string     `json:"type"`
	Source      string     `json:"source,omitempty"`
	Link        string     `json:"link,omitempty"`
	IsActive    bool       `json:"isActive"`
	ActiveUntil *time.Time `json:"activeUntil"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AlertUpdate is a partial update; nil fields are left unchanged.
// ClearActiveUntil removes the expiry.
type AlertUpdate struct {
	Title            *string
	Message          *string
	Region           *string
	Severity         *string
	Type             *string
	Source           *string
	Link             *string
	IsActive         *bool
	ActiveUntil      *time.Time
	ClearActiveUntil bool
}

// Filter narrows ListActive. Empty fields match everything.
type Filter struct {
	Region          string
	Type            string
	IncludeInactive bool
}
