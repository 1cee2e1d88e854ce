package alerts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name   string
	alerts []Alert
	err    error
	calls  atomic.Int32
	block  bool
}

func (s *stubSource) Name() string {
	return s.name
}

func (s *stubSource) Alerts(ctx context.Context) ([]Alert, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.alerts, nil
}

func testAlert(externalID string, severity Severity, region Region, from time.Time) Alert {
	return Alert{
		ID:         alertID(externalID),
		Title:      externalID,
		Region:     region,
		Severity:   severity,
		Type:       TypeOther,
		ActiveFrom: from,
		ExternalID: externalID,
	}
}

func externalIDs(alerts []Alert) []string {
	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ExternalID)
	}
	return ids
}

func TestAggregatorMergesAndSorts(t *testing.T) {
	clock := newFakeClock()
	base := clock.Now()

	first := &stubSource{name: "first", alerts: []Alert{
		testAlert("info", SeverityInfo, RegionQLD, base),
		testAlert("warn-old", SeverityWarning, RegionNSW, base.Add(-time.Hour)),
		testAlert("dup", SeverityWatch, RegionQLD, base),
	}}
	second := &stubSource{name: "second", alerts: []Alert{
		testAlert("dup", SeverityEmergency, RegionQLD, base),
		testAlert("warn-new", SeverityWarning, RegionVIC, base),
		testAlert("emergency", SeverityEmergency, RegionAll, base.Add(-2*time.Hour)),
	}}

	aggregator := NewAggregator("gov", []AlertSource{first, second}, NewCache(time.Minute, clock), NewestFirst, clock)

	result, err := aggregator.GetAlerts(context.Background(), "", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"emergency", "warn-new", "warn-old", "dup", "info"}, externalIDs(result.Alerts))
	assert.False(t, result.Cached)
	assert.Equal(t, base, result.Timestamp)

	for _, a := range result.Alerts {
		if a.ExternalID == "dup" {
			assert.Equal(t, SeverityWatch, a.Severity, "first occurrence wins")
		}
	}
}

func TestAggregatorOldestFirst(t *testing.T) {
	clock := newFakeClock()
	base := clock.Now()

	source := &stubSource{name: "weather", alerts: []Alert{
		testAlert("day-3", SeverityWatch, RegionQLD, base.Add(48*time.Hour)),
		testAlert("day-1", SeverityWatch, RegionQLD, base),
		testAlert("day-2", SeverityWarning, RegionQLD, base.Add(24*time.Hour)),
	}}

	aggregator := NewAggregator("weather", []AlertSource{source}, NewCache(time.Minute, clock), OldestFirst, clock)

	result, err := aggregator.GetAlerts(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"day-2", "day-1", "day-3"}, externalIDs(result.Alerts))
}

func TestAggregatorIsolatesFailingSources(t *testing.T) {
	clock := newFakeClock()
	healthy := &stubSource{name: "healthy", alerts: []Alert{testAlert("ok", SeverityInfo, RegionQLD, clock.Now())}}
	broken := &stubSource{name: "broken", err: errors.New("HTTP error: 503")}

	aggregator := NewAggregator("gov", []AlertSource{broken, healthy}, NewCache(time.Minute, clock), NewestFirst, clock)

	result, err := aggregator.GetAlerts(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, externalIDs(result.Alerts))

	statuses := aggregator.Sources()
	require.Len(t, statuses, 2)
	assert.Equal(t, "broken", statuses[0].Name)
	assert.Equal(t, "HTTP error: 503", statuses[0].LastError)
	assert.NotNil(t, statuses[0].LastFailure)
	assert.Nil(t, statuses[0].LastSuccess)
	assert.Equal(t, "healthy", statuses[1].Name)
	assert.Equal(t, 1, statuses[1].AlertCount)
	assert.NotNil(t, statuses[1].LastSuccess)
}

func TestAggregatorAllSourcesFailing(t *testing.T) {
	clock := newFakeClock()
	aggregator := NewAggregator("gov", []AlertSource{
		&stubSource{name: "a", err: errors.New("down")},
		&stubSource{name: "b", err: errors.New("down")},
	}, NewCache(time.Minute, clock), NewestFirst, clock)

	result, err := aggregator.GetAlerts(context.Background(), "", false)
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
}

func TestAggregatorCache(t *testing.T) {
	clock := newFakeClock()
	source := &stubSource{name: "gov", alerts: []Alert{testAlert("a", SeverityInfo, RegionQLD, clock.Now())}}
	aggregator := NewAggregator("gov", []AlertSource{source}, NewCache(10*time.Minute, clock), NewestFirst, clock)
	ctx := context.Background()

	first, err := aggregator.GetAlerts(ctx, "", false)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	second, err := aggregator.GetAlerts(ctx, "", false)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Alerts, second.Alerts)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, int32(1), source.calls.Load())

	forced, err := aggregator.GetAlerts(ctx, "", true)
	require.NoError(t, err)
	assert.False(t, forced.Cached)
	assert.Equal(t, int32(2), source.calls.Load())
	assert.Equal(t, clock.Now(), forced.Timestamp)

	clock.Advance(11 * time.Minute)
	_, err = aggregator.GetAlerts(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, int32(3), source.calls.Load())
}

func TestAggregatorRegionFilter(t *testing.T) {
	clock := newFakeClock()
	now := clock.Now()
	source := &stubSource{name: "gov", alerts: []Alert{
		testAlert("qld", SeverityInfo, RegionQLD, now),
		testAlert("nsw", SeverityInfo, RegionNSW, now),
		testAlert("national", SeverityInfo, RegionAll, now),
	}}
	aggregator := NewAggregator("gov", []AlertSource{source}, NewCache(time.Minute, clock), NewestFirst, clock)
	ctx := context.Background()

	qld, err := aggregator.GetAlerts(ctx, RegionQLD, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"qld", "national"}, externalIDs(qld.Alerts))

	all, err := aggregator.GetAlerts(ctx, RegionAll, false)
	require.NoError(t, err)
	assert.Len(t, all.Alerts, 3)

	unfiltered, err := aggregator.GetAlerts(ctx, "", false)
	require.NoError(t, err)
	assert.True(t, unfiltered.Cached, "empty region shares the ALL cache entry")

	assert.Equal(t, int32(2), source.calls.Load())
}

func TestAggregatorContextCancelled(t *testing.T) {
	clock := newFakeClock()
	source := &stubSource{name: "slow", block: true}
	aggregator := NewAggregator("gov", []AlertSource{source}, NewCache(time.Minute, clock), NewestFirst, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := aggregator.GetAlerts(ctx, "", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := aggregator.cache.Get(allRegionsKey)
	assert.False(t, ok, "cancelled runs are not cached")
}

func TestMerge(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	gov := []Alert{
		testAlert("gov-info", SeverityInfo, RegionQLD, base),
		testAlert("shared", SeverityWarning, RegionQLD, base),
	}
	weather := []Alert{
		testAlert("heat", SeverityEmergency, RegionQLD, base.Add(time.Hour)),
		testAlert("shared", SeverityInfo, RegionQLD, base),
	}
	admin := []Alert{
		testAlert("admin", SeverityWarning, RegionQLD, base.Add(time.Hour)),
	}

	merged := Merge(gov, weather, admin)
	assert.Equal(t, []string{"heat", "admin", "shared", "gov-info"}, externalIDs(merged))

	assert.Empty(t, Merge())
}
