package api

import (
	"context"
	"time"

	"github.com/ponnect/ponnect-alerts/app/alerts"
	"github.com/ponnect/ponnect-alerts/app/database"
	"github.com/ponnect/ponnect-alerts/app/feed"
	"github.com/ponnect/ponnect-alerts/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, entries []feed.Entry) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// AlertPipeline is one aggregated alert family.
type AlertPipeline interface {
	Name() string
	GetAlerts(ctx context.Context, region alerts.Region, forceRefresh bool) (*alerts.Result, error)
	Sources() []alerts.SourceStatus
}

var _ AlertPipeline = (*alerts.Aggregator)(nil)

type Handler struct {
	alertRepo database.AlertRepository
	gov       AlertPipeline
	weather   AlertPipeline
	generator GeneratorInterface
	scheduler tasks.TaskSchedulerInterface
	baseURL   string
	version   string
	now       func() time.Time
}

// Response is the envelope of every JSON endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PipelineResponse adds freshness metadata to a pipeline result.
type PipelineResponse struct {
	Success     bool           `json:"success"`
	Data        []alerts.Alert `json:"data"`
	Source      string         `json:"source"`
	LastUpdated time.Time      `json:"lastUpdated"`
	Cached      bool           `json:"cached"`
}

type CreateAlertRequest struct {
	Title       string     `json:"title" binding:"required"`
	Message     string     `json:"message" binding:"required"`
	Region      string     `json:"region" binding:"required"`
	Severity    string     `json:"severity"`
	Type        string     `json:"type" binding:"required"`
	Source      string     `json:"source"`
	Link        string     `json:"link"`
	IsActive    *bool      `json:"isActive"`
	ActiveUntil *time.Time `json:"activeUntil"`
}

// UpdateAlertRequest is a partial update. Absent fields are unchanged;
// clearActiveUntil removes the expiry.
type UpdateAlertRequest struct {
	Title            *string    `json:"title"`
	Message          *string    `json:"message"`
	Region           *string    `json:"region"`
	Severity         *string    `json:"severity"`
	Type             *string    `json:"type"`
	Source           *string    `json:"source"`
	Link             *string    `json:"link"`
	IsActive         *bool      `json:"isActive"`
	ActiveUntil      *time.Time `json:"activeUntil"`
	ClearActiveUntil bool       `json:"clearActiveUntil"`
}

type SaveResponse struct {
	Saved bool `json:"saved"`
}

// Principal is the caller identity resolved by authMiddleware.
type Principal struct {
	UserID string
	Role   string
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
