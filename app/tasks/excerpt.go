package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Excerpter downloads an item's article page and extracts a short excerpt
// for the notification body.
type Excerpter struct {
	httpClient *http.Client
	extractor  ContentExtractor
	userAgent  string
	timeout    time.Duration
}

func NewExcerpter(httpClient *http.Client, extractor ContentExtractor, userAgent string, timeout time.Duration) *Excerpter {
	return &Excerpter{
		httpClient: httpClient,
		extractor:  extractor,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Run never fails the caller: any problem yields an empty excerpt.
func (e *Excerpter) Run(ctx context.Context, feedName, link string) string {
	excerpt, err := e.fetch(ctx, link)
	if err != nil {
		slog.Debug("Excerpt unavailable", "feed", feedName, "url", link, "error", err)
		return ""
	}
	return excerpt
}

func (e *Excerpter) fetch(ctx context.Context, link string) (string, error) {
	if link == "" {
		return "", fmt.Errorf("item has no link")
	}

	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid link: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return "", fmt.Errorf("content type is not HTML: %s", contentType)
	}

	excerpt, err := e.extractor.Run(resp.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	return excerpt, nil
}
