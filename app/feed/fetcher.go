package feed

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const maxBodySize = 5 * 1024 * 1024

var xmlEncodingPattern = regexp.MustCompile(`(?i)^(\s*<\?xml[^>]*encoding=["'])([^"']+)(["'])`)

// HTTPClient is the subset of *http.Client the fetcher needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SourceDescriptor describes one outbound fetch for a configured source.
type SourceDescriptor struct {
	Name    string
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

type Response struct {
	ContentType string
	Body        string
}

// FetchError reports a source that could not be read. StatusCode is zero
// for transport failures.
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s: HTTP error: %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Fetcher struct {
	client         HTTPClient
	userAgent      string
	defaultTimeout time.Duration
}

func NewFetcher(client HTTPClient, userAgent string, defaultTimeout time.Duration) *Fetcher {
	if defaultTimeout <= 0 {
		defaultTimeout = 15 * time.Second
	}
	return &Fetcher{
		client:         client,
		userAgent:      userAgent,
		defaultTimeout: defaultTimeout,
	}
}

// Fetch performs a GET for req. Every failure, including non-2xx statuses,
// comes back as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, req SourceDescriptor) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &FetchError{Source: req.Name, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &FetchError{Source: req.Name, Err: fmt.Errorf("failed to fetch: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Source: req.Name, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{Source: req.Name, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := decodeBody(data, contentType)
	if err != nil {
		return nil, &FetchError{Source: req.Name, Err: fmt.Errorf("failed to decode response body: %w", err)}
	}

	return &Response{ContentType: contentType, Body: body}, nil
}

// decodeBody transcodes to UTF-8 when the response declares another charset
// in its Content-Type or XML prolog.
func decodeBody(data []byte, contentType string) (string, error) {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	if label == "" {
		head := data
		if len(head) > 256 {
			head = head[:256]
		}
		if match := xmlEncodingPattern.FindSubmatch(head); match != nil {
			label = string(match[2])
		}
	}

	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" || label == "us-ascii" {
		return string(data), nil
	}

	reader, err := charset.NewReaderLabel(label, strings.NewReader(string(data)))
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	// The body is UTF-8 now; a stale prolog label would make XML decoders
	// such as gofeed transcode it a second time.
	return xmlEncodingPattern.ReplaceAllString(string(decoded), "${1}UTF-8${3}"), nil
}
