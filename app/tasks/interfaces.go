package tasks

import (
	"context"
	"time"

	"github.com/ponnect/ponnect-alerts/app/alerts"
)

// TaskSchedulerInterface is the scheduler surface used by main and the API.
//
//	scheduler := NewScheduler(refreshers, expirer, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	GetStats() Stats
	Health() map[string]any
}

// AlertRefresher is an aggregator whose cache can be rebuilt on demand.
type AlertRefresher interface {
	Name() string
	GetAlerts(ctx context.Context, region alerts.Region, forceRefresh bool) (*alerts.Result, error)
}

// AlertExpirer deactivates persisted alerts past their expiry.
type AlertExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
