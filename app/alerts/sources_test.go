package alerts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ponnect/ponnect-alerts/app/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const govFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Biosecurity alerts</title>
  <item>
    <title>Paralysis Tick Warning - Southeast Queensland</title>
    <description><![CDATA[<p>High risk conditions reported near <b>Brisbane</b></p>]]></description>
    <link>https://example.gov.au/ticks</link>
    <guid>tick-2025-01</guid>
    <pubDate>Fri, 10 Jan 2025 00:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Industry newsletter</title>
    <description>Quarterly update</description>
    <link>https://example.gov.au/newsletter</link>
  </item>
  <item>
    <title>Snake season advisory</title>
    <description>Expect increased activity</description>
    <link>https://example.gov.au/snakes</link>
    <pubDate>not a date</pubDate>
  </item>
</channel>
</rss>`

type stubGuidance struct {
	guidance []string
	err      error
	delay    time.Duration
	calls    int
}

func (s *stubGuidance) GenerateGuidance(ctx context.Context, req GuidanceRequest) ([]string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.guidance, s.err
}

func newGovServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newGovConfig(url string) *feed.Config {
	return &feed.Config{
		Name:   "daff",
		URL:    url,
		Source: string(SourceDAFF),
		Region: "NSW",
		Settings: feed.ConfigSettings{
			Enabled:    true,
			MaxItems:   50,
			Timeout:    5,
			ActiveDays: 14,
			Guidance:   true,
		},
		Filters: []feed.ConfigFilter{{Field: "title", Excludes: []string{"newsletter"}}},
	}
}

func TestGovFeedSourceAlerts(t *testing.T) {
	server := newGovServer(t, govFeed)
	clock := newFakeClock()
	guidance := &stubGuidance{guidance: []string{"Check daily"}}

	source := NewGovFeedSource(newGovConfig(server.URL), feed.NewFetcher(server.Client(), "test", time.Second), guidance, time.Second, clock)
	assert.Equal(t, "daff", source.Name())

	alerts, err := source.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	tick := alerts[0]
	assert.Equal(t, "Paralysis Tick Warning - Southeast Queensland", tick.Title)
	assert.Equal(t, "High risk conditions reported near Brisbane", tick.Message)
	assert.Equal(t, TypeTick, tick.Type)
	assert.Equal(t, SeverityWarning, tick.Severity)
	assert.Equal(t, RegionQLD, tick.Region)
	assert.Equal(t, SourceDAFF, tick.Source)
	assert.Equal(t, ConfidenceVerified, tick.Confidence)
	assert.Equal(t, "gov_daff:tick-2025-01", tick.ExternalID)
	assert.Equal(t, alertID(tick.ExternalID), tick.ID)
	assert.Equal(t, "https://example.gov.au/ticks", tick.Link)
	assert.True(t, tick.ActiveFrom.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, tick.ActiveUntil)
	assert.Equal(t, 14*24*time.Hour, tick.ActiveUntil.Sub(tick.ActiveFrom))
	assert.Equal(t, []string{"Check daily"}, tick.Guidance)

	snake := alerts[1]
	assert.Equal(t, TypeSnake, snake.Type)
	assert.Equal(t, SeverityWatch, snake.Severity)
	assert.Equal(t, RegionNSW, snake.Region, "falls back to the configured region")
	assert.Equal(t, "gov_daff:https://example.gov.au/snakes", snake.ExternalID)
	assert.Equal(t, clock.Now(), snake.ActiveFrom, "unparsable dates fall back to now")

	assert.Equal(t, 2, guidance.calls)
}

func TestGovFeedSourceStableIDs(t *testing.T) {
	server := newGovServer(t, govFeed)
	fetcher := feed.NewFetcher(server.Client(), "test", time.Second)
	source := NewGovFeedSource(newGovConfig(server.URL), fetcher, nil, 0, newFakeClock())

	first, err := source.Alerts(context.Background())
	require.NoError(t, err)
	second, err := source.Alerts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, externalIDs(first), externalIDs(second))
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Nil(t, first[0].Guidance)
}

func TestGovFeedSourceMaxItemsAndNoGuidance(t *testing.T) {
	server := newGovServer(t, govFeed)
	config := newGovConfig(server.URL)
	config.Settings.MaxItems = 1
	config.Settings.Guidance = false
	config.Settings.ActiveDays = 0
	config.Region = ""
	guidance := &stubGuidance{guidance: []string{"unused"}}

	source := NewGovFeedSource(config, feed.NewFetcher(server.Client(), "test", time.Second), guidance, time.Second, newFakeClock())

	alerts, err := source.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Nil(t, alerts[0].ActiveUntil)
	assert.Zero(t, guidance.calls)
}

func TestGovFeedSourceGuidanceFailures(t *testing.T) {
	server := newGovServer(t, govFeed)
	fetcher := feed.NewFetcher(server.Client(), "test", time.Second)

	slow := &stubGuidance{guidance: []string{"late"}, delay: time.Second}
	source := NewGovFeedSource(newGovConfig(server.URL), fetcher, slow, 10*time.Millisecond, newFakeClock())

	alerts, err := source.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Nil(t, a.Guidance)
	}

	failing := &stubGuidance{err: errors.New("quota exceeded")}
	source = NewGovFeedSource(newGovConfig(server.URL), fetcher, failing, time.Second, newFakeClock())

	alerts, err = source.Alerts(context.Background())
	require.NoError(t, err)
	assert.Nil(t, alerts[0].Guidance)
}

func TestGovFeedSourceUnparsable(t *testing.T) {
	server := newGovServer(t, "<html><body>Maintenance</body></html>")
	source := NewGovFeedSource(newGovConfig(server.URL), feed.NewFetcher(server.Client(), "test", time.Second), nil, 0, newFakeClock())

	_, err := source.Alerts(context.Background())
	assert.ErrorIs(t, err, ErrUnparsableFeed)
}

func TestGovFeedSourceTruncatesMessage(t *testing.T) {
	long := strings.Repeat("word ", 200)
	body := `<rss><channel><item><title>Notice</title><description>` + long + `</description><guid>n1</guid></item></channel></rss>`
	server := newGovServer(t, body)
	source := NewGovFeedSource(newGovConfig(server.URL), feed.NewFetcher(server.Client(), "test", time.Second), nil, 0, newFakeClock())

	alerts, err := source.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.LessOrEqual(t, len([]rune(alerts[0].Message)), maxMessageLength)
	assert.True(t, strings.HasSuffix(alerts[0].Message, "..."))
}

func TestGovFeedSourceClassifiesFullDescription(t *testing.T) {
	long := strings.Repeat("word ", 120) + "Reports of baits laid near Perth parks."
	body := `<rss><channel><item><title>Notice</title><description>` + long + `</description><guid>n1</guid></item></channel></rss>`
	server := newGovServer(t, body)
	source := NewGovFeedSource(newGovConfig(server.URL), feed.NewFetcher(server.Client(), "test", time.Second), nil, 0, newFakeClock())

	alerts, err := source.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.NotContains(t, alerts[0].Message, "Perth")
	assert.Equal(t, RegionWA, alerts[0].Region)
}

func TestGovFeedSourceDeadlineCoversGuidance(t *testing.T) {
	var items strings.Builder
	for i := range 6 {
		fmt.Fprintf(&items, `<item><title>Tick alert %d</title><description>Paralysis ticks active</description><guid>t%d</guid></item>`, i, i)
	}
	server := newGovServer(t, `<rss><channel>`+items.String()+`</channel></rss>`)

	config := newGovConfig(server.URL)
	config.Settings.Timeout = 1
	slow := &stubGuidance{guidance: []string{"Check daily"}, delay: 400 * time.Millisecond}
	source := NewGovFeedSource(config, feed.NewFetcher(server.Client(), "test", time.Second), slow, time.Second, newFakeClock())

	started := time.Now()
	alerts, err := source.Alerts(context.Background())
	elapsed := time.Since(started)

	require.NoError(t, err)
	require.Len(t, alerts, 6)
	assert.Less(t, elapsed, 1500*time.Millisecond)
	assert.Equal(t, []string{"Check daily"}, alerts[0].Guidance)
	assert.Nil(t, alerts[5].Guidance)
	assert.Less(t, slow.calls, 6)
}

func TestGovFeedSourceHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := NewGovFeedSource(newGovConfig(server.URL), feed.NewFetcher(server.Client(), "test", time.Second), nil, 0, newFakeClock())

	_, err := source.Alerts(context.Background())
	var fetchErr *feed.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
}
