package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
)

// MaxFeedSize caps the number of bytes read from a single feed response.
const MaxFeedSize = 10 << 20

const acceptHeader = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

// Fetcher downloads and parses feed documents
type Fetcher struct {
	client      *resty.Client
	parser      *Parser
	limiter     *HostLimiter
	maxBodySize int
}

// NewFetcher creates a fetcher whose requests give up after timeout.
// limiter may be nil to disable per-host spacing.
func NewFetcher(timeout time.Duration, userAgent string, limiter *HostLimiter) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", acceptHeader)

	return &Fetcher{
		client:      client,
		parser:      NewParser(),
		limiter:     limiter,
		maxBodySize: MaxFeedSize,
	}
}

// Fetch retrieves the document at feedURL and parses it.
// Failures are *FetchError values. When the feed parses but has no entries the
// parsed feed is returned together with an ErrEmptyFeed error.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*ParsedFeed, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, feedURL); err != nil {
			return nil, &FetchError{Kind: ErrNetwork, URL: feedURL, Err: err}
		}
	}

	data, err := f.download(ctx, feedURL)
	if err != nil {
		return nil, &FetchError{Kind: ErrNetwork, URL: feedURL, Err: err}
	}

	parsed, err := f.parser.Run(data)
	if err != nil {
		return nil, &FetchError{Kind: ErrParse, URL: feedURL, Err: err}
	}

	slog.Debug("Feed parsed", "url", feedURL, "title", parsed.Title, "entries", len(parsed.Entries))

	if len(parsed.Entries) == 0 {
		return parsed, &FetchError{Kind: ErrEmptyFeed, URL: feedURL}
	}

	return parsed, nil
}

func (f *Fetcher) download(ctx context.Context, feedURL string) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetResponseBodyLimit(f.maxBodySize).
		Get(feedURL)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status())
	}

	return resp.Body(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
