package database

import (
	"context"
	"time"
)

type AlertRepository interface {
	ListActive(ctx context.Context, filter Filter) ([]Alert, error)
	Get(ctx context.Context, id string) (*Alert, error)
	Count(ctx context.Context) (int, error)

	Create(ctx context.Context, alert *Alert) error
	Update(ctx context.Context, id string, update AlertUpdate) (*Alert, error)
	Delete(ctx context.Context, id string) error

	ToggleSaved(ctx context.Context, userID, alertID string) (bool, error)
	ListSaved(ctx context.Context, userID string) ([]Alert, error)

	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
