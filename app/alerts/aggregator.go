package alerts

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const allRegionsKey = "all"

// AlertSource produces candidate alerts from one external feed or API.
type AlertSource interface {
	Name() string
	Alerts(ctx context.Context) ([]Alert, error)
}

// RecencyOrder is the secondary sort applied after severity.
type RecencyOrder int

const (
	NewestFirst RecencyOrder = iota
	OldestFirst
)

// Result is the outcome of one GetAlerts call.
type Result struct {
	Alerts    []Alert
	Timestamp time.Time
	Cached    bool
}

// SourceStatus is the health of one source as of its last run.
type SourceStatus struct {
	Name        string     `json:"name"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
	LastFailure *time.Time `json:"lastFailure,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	AlertCount  int        `json:"alertCount"`
}

// Aggregator fans out to its sources, merges their alerts and caches the
// result per region.
type Aggregator struct {
	name    string
	sources []AlertSource
	cache   *Cache
	order   RecencyOrder
	clock   Clock

	mu     sync.Mutex
	health map[string]*SourceStatus
}

func NewAggregator(name string, sources []AlertSource, cache *Cache, order RecencyOrder, clock Clock) *Aggregator {
	if clock == nil {
		clock = SystemClock
	}
	health := make(map[string]*SourceStatus, len(sources))
	for _, src := range sources {
		health[src.Name()] = &SourceStatus{Name: src.Name()}
	}
	return &Aggregator{
		name:    name,
		sources: sources,
		cache:   cache,
		order:   order,
		clock:   clock,
		health:  health,
	}
}

func (a *Aggregator) Name() string {
	return a.name
}

// GetAlerts returns alerts for region, or for every region when region is
// empty or ALL. Failing sources contribute nothing; the only error is the
// caller's context ending before the fan-out completes.
func (a *Aggregator) GetAlerts(ctx context.Context, region Region, forceRefresh bool) (*Result, error) {
	key := cacheKey(region)

	if !forceRefresh {
		if entry, ok := a.cache.Get(key); ok {
			return &Result{Alerts: entry.Alerts, Timestamp: entry.Timestamp, Cached: true}, nil
		}
	}

	candidates := a.collect(ctx)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregating %s alerts: %w", a.name, err)
	}

	if key != allRegionsKey {
		candidates = lo.Filter(candidates, func(alert Alert, _ int) bool {
			return alert.Region == region || alert.Region == RegionAll
		})
	}

	merged := Dedup(candidates)
	SortAlerts(merged, a.order)

	entry := a.cache.Set(key, merged)
	slog.Debug("Alerts aggregated", "aggregator", a.name, "region", key, "count", len(merged))

	return &Result{Alerts: entry.Alerts, Timestamp: entry.Timestamp}, nil
}

// collect runs every source concurrently. Each goroutine writes only its
// own slot so the concatenation follows source order.
func (a *Aggregator) collect(ctx context.Context) []Alert {
	perSource := make([][]Alert, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			alerts, err := src.Alerts(ctx)
			if err != nil {
				slog.Warn("Source failed", "aggregator", a.name, "source", src.Name(), "error", err)
				a.recordFailure(src.Name(), err)
				return nil
			}
			perSource[i] = alerts
			a.recordSuccess(src.Name(), len(alerts))
			return nil
		})
	}
	_ = g.Wait()

	return lo.Flatten(perSource)
}

func (a *Aggregator) recordSuccess(name string, count int) {
	now := a.clock.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	status := a.status(name)
	status.LastSuccess = &now
	status.AlertCount = count
}

func (a *Aggregator) recordFailure(name string, err error) {
	now := a.clock.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	status := a.status(name)
	status.LastFailure = &now
	status.LastError = err.Error()
}

func (a *Aggregator) status(name string) *SourceStatus {
	status, ok := a.health[name]
	if !ok {
		status = &SourceStatus{Name: name}
		a.health[name] = status
	}
	return status
}

// Sources reports per-source health sorted by name.
func (a *Aggregator) Sources() []SourceStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	statuses := make([]SourceStatus, 0, len(a.health))
	for _, status := range a.health {
		statuses = append(statuses, *status)
	}
	slices.SortFunc(statuses, func(x, y SourceStatus) int { return cmp.Compare(x.Name, y.Name) })
	return statuses
}

func cacheKey(region Region) string {
	if region == "" || region == RegionAll {
		return allRegionsKey
	}
	return string(region)
}

// Dedup keeps the first alert seen for each external id.
func Dedup(alerts []Alert) []Alert {
	return lo.UniqBy(alerts, func(alert Alert) string {
		return alert.ExternalID
	})
}

// SortAlerts orders alerts by urgency, then by ActiveFrom in the given
// direction. Ties keep their input order.
func SortAlerts(alerts []Alert, order RecencyOrder) {
	slices.SortStableFunc(alerts, func(x, y Alert) int {
		if c := cmp.Compare(x.Severity.Rank(), y.Severity.Rank()); c != 0 {
			return c
		}
		if order == OldestFirst {
			return x.ActiveFrom.Compare(y.ActiveFrom)
		}
		return y.ActiveFrom.Compare(x.ActiveFrom)
	})
}

// Merge combines alert families into one list, newest first within each
// severity.
func Merge(families ...[]Alert) []Alert {
	merged := Dedup(lo.Flatten(families))
	SortAlerts(merged, NewestFirst)
	return merged
}
