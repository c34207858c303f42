package ingest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-pull/internal/database"
	"github.com/lysyi3m/rss-pull/internal/feed"
)

// FeedFetcher retrieves and parses a feed document
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*feed.ParsedFeed, error)
}

type Engine struct {
	fetcher  FeedFetcher
	sources  database.SourceStore
	articles database.ArticleStore
	metrics  *Metrics
	workers  int
	now      func() time.Time
}

type Option func(*Engine)

// WithMetrics records every refresh on m
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock replaces time.Now as the source of fetch timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine wires the fetcher to the store. workers bounds the number of
// sources RefreshAll processes at once; values below 1 mean 1.
func NewEngine(fetcher FeedFetcher, sources database.SourceStore, articles database.ArticleStore, workers int, opts ...Option) *Engine {
	e := &Engine{
		fetcher:  fetcher,
		sources:  sources,
		articles: articles,
		workers:  max(workers, 1),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// AddSource subscribes to feedURL after checking that it serves a feed.
// A feed that parses but has no entries yet is accepted. No articles are stored.
func (e *Engine) AddSource(ctx context.Context, feedURL string) (string, error) {
	parsed, err := e.fetcher.Fetch(ctx, feedURL)
	if err != nil && !(errors.Is(err, feed.ErrEmptyFeed) && parsed != nil) {
		return "", err
	}

	name := cmp.Or(parsed.Title, feedURL)

	id, err := e.sources.AddSource(ctx, name, feedURL, parsed.SiteURL)
	if err != nil {
		return "", err
	}

	slog.Info("Source added", "id", id, "name", name, "url", feedURL)

	return id, nil
}

// RefreshSource fetches one source and stores the entries it does not have yet.
// Only a failed lookup of the source is returned as an error; fetch failures
// are recorded in the report.
func (e *Engine) RefreshSource(ctx context.Context, sourceID string) (Report, error) {
	report := Report{
		SourceID:  sourceID,
		State:     StateIdle,
		StartedAt: e.now().UTC(),
	}

	source, err := e.sources.GetSource(ctx, sourceID)
	if err != nil {
		return report, fmt.Errorf("failed to get source: %w", err)
	}

	start := time.Now()
	e.refresh(ctx, source, &report)
	report.Duration = time.Since(start)

	e.metrics.RecordReport(report)

	if report.State == StateFailed {
		slog.Warn("Refresh failed", "source", source.Name, "url", source.FeedURL, "error", report.FetchError, "partial", report.Partial)
	} else {
		slog.Info("Refresh completed", "source", source.Name, "added", report.Added,
			"duplicates", report.SkippedDuplicate, "invalid", report.SkippedInvalid,
			"failed", report.Failed, "partial", report.Partial, "duration", report.Duration)
	}

	return report, nil
}

func (e *Engine) refresh(ctx context.Context, source *database.Source, report *Report) {
	report.State = StateFetching

	parsed, err := e.fetcher.Fetch(ctx, source.FeedURL)
	if err != nil {
		if errors.Is(err, feed.ErrParse) || errors.Is(err, feed.ErrEmptyFeed) {
			report.State = StateParsing
		}
		report.fail(err)
		report.Partial = ctx.Err() != nil
		return
	}

	fetchedAt := e.now()

	report.State = StateInserting
	for i, entry := range parsed.Entries {
		if ctx.Err() != nil {
			report.Partial = true
			slog.Debug("Refresh cancelled", "source", source.Name, "processed", i, "entries", len(parsed.Entries))
			break
		}

		article, err := feed.Normalize(entry, source.ID, fetchedAt)
		if err != nil {
			report.SkippedInvalid++
			slog.Debug("Entry skipped", "source", source.Name, "post_id", entry.PostID, "title", entry.Title, "reason", feed.ErrorKind(err))
			continue
		}

		result, err := e.articles.InsertArticleIfAbsent(ctx, article)
		if err != nil {
			if ctx.Err() != nil {
				report.Partial = true
				break
			}
			report.Failed++
			slog.Error("Failed to store article", "source", source.Name, "post_id", article.PostID, "error", err)
			continue
		}

		switch result {
		case database.Inserted:
			report.Added++
		case database.AlreadyExists:
			report.SkippedDuplicate++
		}
	}

	report.State = StateDone
}

// RefreshAll refreshes every known source, at most workers at a time.
// A failing source never prevents the others from being refreshed.
func (e *Engine) RefreshAll(ctx context.Context) (map[string]Report, error) {
	sources, err := e.sources.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	var (
		mu      sync.Mutex
		reports = make(map[string]Report, len(sources))
		g       errgroup.Group
	)
	g.SetLimit(e.workers)

	for _, source := range sources {
		g.Go(func() error {
			report, err := e.RefreshSource(ctx, source.ID)
			if err != nil {
				report.fail(err)
				report.Partial = ctx.Err() != nil
			}

			mu.Lock()
			reports[source.ID] = report
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	slog.Info("Refresh of all sources completed", "sources", len(sources))

	return reports, nil
}
