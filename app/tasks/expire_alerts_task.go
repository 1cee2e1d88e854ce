package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpireAlertsTask deactivates persisted alerts whose expiry has passed.
type ExpireAlertsTask struct {
	Task
	expirer AlertExpirer
	now     func() time.Time
}

func NewExpireAlertsTask(expirer AlertExpirer, now func() time.Time) *ExpireAlertsTask {
	return &ExpireAlertsTask{
		Task:    NewTask(TaskTypeExpireAlerts, "alerts"),
		expirer: expirer,
		now:     now,
	}
}

func (t *ExpireAlertsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	expired, err := t.expirer.ExpireDue(ctx, t.now())
	if err != nil {
		return fmt.Errorf("failed to expire alerts: %w", err)
	}

	if expired > 0 {
		slog.Info("Task completed",
			"type", "ExpireAlerts",
			"duration", t.GetDuration(),
			"expired", expired)
	}

	return nil
}
