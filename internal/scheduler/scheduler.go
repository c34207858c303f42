package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/rss-pull/internal/ingest"
)

// Refresher refreshes every known source
type Refresher interface {
	RefreshAll(ctx context.Context) (map[string]ingest.Report, error)
}

// Scheduler runs a refresh of all sources on start and then on every tick
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   atomic.Bool
	stats     Stats
	mu        sync.RWMutex
}

// Stats holds scheduler statistics
type Stats struct {
	TotalRuns       int64
	SkippedRuns     int64
	FailedSources   int64
	LastRunAt       *time.Time
	LastRunDuration time.Duration
	LastRunSources  int
}

func NewScheduler(refresher Refresher, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the scheduler operation
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.trigger()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.trigger()
			}
		}
	}()
}

// Stop cancels any refresh in progress and waits for it to return
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

// trigger starts a run unless the previous one is still going
func (s *Scheduler) trigger() {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("Previous refresh still running, skipping tick")
		s.mu.Lock()
		s.stats.SkippedRuns++
		s.mu.Unlock()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.run()
	}()
}

func (s *Scheduler) run() {
	start := time.Now()

	reports, err := s.refresher.RefreshAll(s.ctx)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Scheduled refresh failed", "error", err)
	}

	failed := 0
	added := 0
	for _, report := range reports {
		if !report.Succeeded() {
			failed++
		}
		added += report.Added
	}

	s.mu.Lock()
	s.stats.TotalRuns++
	s.stats.FailedSources += int64(failed)
	now := time.Now()
	s.stats.LastRunAt = &now
	s.stats.LastRunDuration = duration
	s.stats.LastRunSources = len(reports)
	s.mu.Unlock()

	slog.Info("Scheduled refresh completed", "sources", len(reports), "failed", failed, "added", added, "duration", duration)
}

// GetStats returns current scheduler statistics
func (s *Scheduler) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Health returns a summary of the scheduler state for the health endpoint
func (s *Scheduler) Health() map[string]any {
	stats := s.GetStats()

	health := map[string]any{
		"interval":       s.interval.String(),
		"running":        s.running.Load(),
		"total_runs":     stats.TotalRuns,
		"skipped_runs":   stats.SkippedRuns,
		"failed_sources": stats.FailedSources,
	}

	if stats.LastRunAt != nil {
		health["last_run_at"] = stats.LastRunAt.Format(time.RFC3339)
		health["last_run_duration"] = stats.LastRunDuration.String()
		health["last_run_sources"] = stats.LastRunSources
	}

	return health
}
