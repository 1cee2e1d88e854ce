package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// RefreshAlertsTask rebuilds an aggregator's all-regions cache entry.
type RefreshAlertsTask struct {
	Task
	refresher AlertRefresher
}

func NewRefreshAlertsTask(refresher AlertRefresher) *RefreshAlertsTask {
	return &RefreshAlertsTask{
		Task:      NewTask(TaskTypeRefreshAlerts, refresher.Name()),
		refresher: refresher,
	}
}

func (t *RefreshAlertsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.refresher.GetAlerts(ctx, "", true)
	if err != nil {
		return fmt.Errorf("failed to refresh %s alerts: %w", t.Target, err)
	}

	slog.Info("Task completed",
		"type", "RefreshAlerts",
		"aggregator", t.Target,
		"duration", t.GetDuration(),
		"alerts", len(result.Alerts))

	return nil
}
