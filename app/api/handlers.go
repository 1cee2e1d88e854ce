package api

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ponnect/ponnect-alerts/app/alerts"
	"github.com/ponnect/ponnect-alerts/app/database"
	"github.com/ponnect/ponnect-alerts/app/feed"
	"github.com/ponnect/ponnect-alerts/app/tasks"
	"github.com/samber/lo"
)

const fetchFailedMessage = "failed to fetch alerts"

func NewHandler(alertRepo database.AlertRepository, gov, weather AlertPipeline,
	scheduler tasks.TaskSchedulerInterface, baseURL, version string) *Handler {
	return &Handler{
		alertRepo: alertRepo,
		gov:       gov,
		weather:   weather,
		generator: feed.NewGenerator(),
		scheduler: scheduler,
		baseURL:   strings.TrimRight(baseURL, "/"),
		version:   version,
		now:       time.Now,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	status := "ok"
	health := map[string]any{
		"timestamp": h.now().Format(time.RFC3339),
		"version":   h.version,
		"sources": map[string][]alerts.SourceStatus{
			h.gov.Name():     h.gov.Sources(),
			h.weather.Name(): h.weather.Sources(),
		},
	}

	if count, err := h.alertRepo.Count(c.Request.Context()); err == nil {
		health["persistedAlerts"] = count
	} else {
		slog.Error("Database error", "operation", "count_alerts", "error", err)
		status = "degraded"
	}

	if h.scheduler != nil {
		schedulerHealth := h.scheduler.Health()
		health["scheduler"] = schedulerHealth
		if schedulerHealth["status"] != "healthy" {
			status = "degraded"
		}
	}

	health["status"] = status
	c.JSON(http.StatusOK, Response{Success: true, Data: health})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	region, err := regionParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	filter := database.Filter{}
	if region != alerts.RegionAll {
		filter.Region = string(region)
	}

	if raw := c.Query("type"); raw != "" {
		alertType, err := alerts.ParseType(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Type = string(alertType)
	}

	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid active: %q", raw))
			return
		}
		filter.IncludeInactive = !active
	}

	stored, err := h.alertRepo.ListActive(c.Request.Context(), filter)
	if err != nil {
		h.storeError(c, "list_alerts", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(stored)})
}

func (h *Handler) GetAlert(c *gin.Context) {
	alert, err := h.alertRepo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, "get_alert", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: alert})
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	alert := &database.Alert{
		Title:       req.Title,
		Message:     req.Message,
		Region:      req.Region,
		Severity:    cmp.Or(req.Severity, database.SeverityInfo),
		Type:        req.Type,
		Source:      req.Source,
		Link:        req.Link,
		IsActive:    req.IsActive == nil || *req.IsActive,
		ActiveUntil: req.ActiveUntil,
		CreatedBy:   principalFrom(c).UserID,
	}

	if err := h.alertRepo.Create(c.Request.Context(), alert); err != nil {
		h.storeError(c, "create_alert", err)
		return
	}

	slog.Info("Alert created", "id", alert.ID, "region", alert.Region, "severity", alert.Severity, "by", alert.CreatedBy)
	c.JSON(http.StatusCreated, Response{Success: true, Data: alert})
}

func (h *Handler) UpdateAlert(c *gin.Context) {
	var req UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	alert, err := h.alertRepo.Update(c.Request.Context(), c.Param("id"), database.AlertUpdate{
		Title:            req.Title,
		Message:          req.Message,
		Region:           req.Region,
		Severity:         req.Severity,
		Type:             req.Type,
		Source:           req.Source,
		Link:             req.Link,
		IsActive:         req.IsActive,
		ActiveUntil:      req.ActiveUntil,
		ClearActiveUntil: req.ClearActiveUntil,
	})
	if err != nil {
		h.storeError(c, "update_alert", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: alert})
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	id := c.Param("id")
	if err := h.alertRepo.Delete(c.Request.Context(), id); err != nil {
		h.storeError(c, "delete_alert", err)
		return
	}

	slog.Info("Alert deleted", "id", id, "by", principalFrom(c).UserID)
	c.JSON(http.StatusOK, Response{Success: true})
}

func (h *Handler) ToggleSaved(c *gin.Context) {
	saved, err := h.alertRepo.ToggleSaved(c.Request.Context(), principalFrom(c).UserID, c.Param("id"))
	if err != nil {
		h.storeError(c, "toggle_saved", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: SaveResponse{Saved: saved}})
}

func (h *Handler) ListSavedAlerts(c *gin.Context) {
	saved, err := h.alertRepo.ListSaved(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		h.storeError(c, "list_saved", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(saved)})
}

func (h *Handler) GetExternalAlerts(c *gin.Context) {
	h.pipelineAlerts(c, h.weather, "open-meteo", false)
}

func (h *Handler) GetGovAlerts(c *gin.Context) {
	refresh := false
	if raw := c.Query("refresh"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid refresh: %q", raw))
			return
		}
		refresh = parsed
	}

	h.pipelineAlerts(c, h.gov, "government", refresh)
}

func (h *Handler) pipelineAlerts(c *gin.Context, pipeline AlertPipeline, source string, refresh bool) {
	region, err := regionParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := pipeline.GetAlerts(c.Request.Context(), region, refresh)
	if err != nil {
		slog.Error("Alert pipeline failed", "pipeline", pipeline.Name(), "region", region, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Error: fetchFailedMessage})
		return
	}

	c.JSON(http.StatusOK, PipelineResponse{
		Success:     true,
		Data:        nonNil(result.Alerts),
		Source:      source,
		LastUpdated: result.Timestamp,
		Cached:      result.Cached,
	})
}

func (h *Handler) GetMergedAlerts(c *gin.Context) {
	region, err := regionParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	merged, err := h.mergedAlerts(c, region)
	if err != nil {
		slog.Error("Merging alerts failed", "region", region, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Error: fetchFailedMessage})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: merged})
}

func (h *Handler) GetAlertFeed(c *gin.Context) {
	region, err := regionParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	merged, err := h.mergedAlerts(c, region)
	if err != nil {
		slog.Error("Merging alerts failed", "region", region, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	selfLink := h.baseURL + "/alerts/feed.xml"
	title := "Ponnect Alerts"
	if region != alerts.RegionAll {
		selfLink += "?region=" + url.QueryEscape(string(region))
		title += " - " + string(region)
	}

	rss, err := h.generator.Run(feed.Channel{
		Title:       title,
		Link:        cmp.Or(h.baseURL, "https://ponnect.com.au"),
		Description: "Safety alerts for Australian dog owners",
		SelfLink:    selfLink,
		Generator:   "Ponnect Alerts " + h.version,
		BuiltAt:     h.now(),
	}, lo.Map(merged, func(alert alerts.Alert, _ int) feed.Entry {
		return alertEntry(alert)
	}))
	if err != nil {
		slog.Error("RSS generation error", "region", region, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(merged)))
	c.String(http.StatusOK, rss)
}

// mergedAlerts combines active persisted alerts with both pipelines.
func (h *Handler) mergedAlerts(c *gin.Context, region alerts.Region) ([]alerts.Alert, error) {
	ctx := c.Request.Context()

	filter := database.Filter{}
	if region != alerts.RegionAll {
		filter.Region = string(region)
	}
	stored, err := h.alertRepo.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing persisted alerts: %w", err)
	}

	gov, err := h.gov.GetAlerts(ctx, region, false)
	if err != nil {
		return nil, err
	}
	weather, err := h.weather.GetAlerts(ctx, region, false)
	if err != nil {
		return nil, err
	}

	admin := lo.Map(stored, func(a database.Alert, _ int) alerts.Alert {
		return alerts.FromPersisted(a)
	})

	return alerts.Merge(admin, gov.Alerts, weather.Alerts), nil
}

func alertEntry(alert alerts.Alert) feed.Entry {
	description := alert.Message
	if len(alert.Guidance) > 0 {
		description += "\n\n" + strings.Join(alert.Guidance, "\n")
	}

	return feed.Entry{
		GUID:        alert.ExternalID,
		Title:       fmt.Sprintf("[%s] %s", alert.Severity, alert.Title),
		Link:        alert.Link,
		Description: description,
		PublishedAt: alert.ActiveFrom,
		Categories:  []string{string(alert.Type), string(alert.Region)},
	}
}

// regionParam reads ?region=, treating an absent value as ALL.
func regionParam(c *gin.Context) (alerts.Region, error) {
	raw := c.Query("region")
	if raw == "" {
		return alerts.RegionAll, nil
	}
	return alerts.ParseRegion(raw)
}

func (h *Handler) storeError(c *gin.Context, operation string, err error) {
	var validationErr *database.ValidationError
	switch {
	case errors.As(err, &validationErr):
		badRequest(c, validationErr)
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Error: "alert not found"})
	default:
		slog.Error("Database error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Error: "internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
