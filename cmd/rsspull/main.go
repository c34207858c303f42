package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lysyi3m/rss-pull/internal/api"
	"github.com/lysyi3m/rss-pull/internal/cfg"
	"github.com/lysyi3m/rss-pull/internal/database"
	"github.com/lysyi3m/rss-pull/internal/feed"
	"github.com/lysyi3m/rss-pull/internal/ingest"
	"github.com/lysyi3m/rss-pull/internal/scheduler"
)

type app struct {
	cfg      *cfg.Cfg
	db       *database.DB
	sources  *database.SourceRepository
	articles *database.ArticleRepository
	engine   *ingest.Engine
	registry *prometheus.Registry
}

func main() {
	appCfg, args, err := cfg.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	if err := run(appCfg, command, args); err != nil {
		slog.Error("Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg, command string, args []string) error {
	switch command {
	case "serve", "initdb", "add", "refresh", "list":
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	a, err := newApp(appCfg)
	if err != nil {
		return err
	}
	defer a.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		return a.serve(ctx)
	case "initdb":
		fmt.Printf("Database ready at %s\n", appCfg.DBPath)
		return nil
	case "add":
		return a.add(ctx, args)
	case "refresh":
		return a.refresh(ctx, args)
	default:
		return a.list(ctx)
	}
}

func newApp(appCfg *cfg.Cfg) (*app, error) {
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Database migrated", "path", appCfg.DBPath, "version", version, "dirty", dirty)

	var limiter *feed.HostLimiter
	if appCfg.HostInterval > 0 {
		limiter = feed.NewHostLimiter(appCfg.HostInterval)
	}
	fetcher := feed.NewFetcher(appCfg.FetchTimeout, appCfg.UserAgent, limiter)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sources := database.NewSourceRepository(db)
	articles := database.NewArticleRepository(db)
	engine := ingest.NewEngine(fetcher, sources, articles, appCfg.WorkerCount,
		ingest.WithMetrics(ingest.NewMetrics(registry)))

	return &app{
		cfg:      appCfg,
		db:       db,
		sources:  sources,
		articles: articles,
		engine:   engine,
		registry: registry,
	}, nil
}

func (a *app) serve(ctx context.Context) error {
	slog.Info("Starting rss-pull", "version", a.cfg.Version, "db", a.cfg.DBPath)

	a.importSubscriptions(ctx)

	feedScheduler := scheduler.NewScheduler(a.engine, a.cfg.RefreshInterval)
	feedScheduler.Start()
	defer feedScheduler.Stop()

	baseURL := a.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + a.cfg.Port
	}

	handler := api.NewHandler(a.engine, a.sources, a.articles, feedScheduler, baseURL, a.cfg.Version)
	server := api.NewServer(handler, a.registry, a.cfg.Username, a.cfg.Password)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", a.cfg.Port, "auth", a.cfg.AuthEnabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}

func (a *app) importSubscriptions(ctx context.Context) {
	subs, err := feed.LoadSubscriptions(a.cfg.FeedsFile)
	if err != nil {
		slog.Error("Failed to load subscriptions", "file", a.cfg.FeedsFile, "error", err)
		return
	}

	added := 0
	for _, sub := range subs {
		if _, err := a.engine.AddSource(ctx, sub.URL); err != nil {
			if !errors.Is(err, database.ErrDuplicateSource) {
				slog.Warn("Failed to subscribe", "url", sub.URL, "error", err)
			}
			continue
		}
		added++
	}

	slog.Info("Subscriptions imported", "file", a.cfg.FeedsFile, "listed", len(subs), "added", added)
}

func (a *app) add(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return fmt.Errorf("add requires at least one feed URL")
	}

	var failed int
	for _, u := range urls {
		if err := feed.ValidateURL(u); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", u, err)
			failed++
			continue
		}

		id, err := a.engine.AddSource(ctx, u)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", u, err)
			failed++
			continue
		}
		fmt.Printf("%s\t%s\n", id, u)
	}

	if failed > 0 {
		return fmt.Errorf("failed to add %d of %d sources", failed, len(urls))
	}
	return nil
}

func (a *app) refresh(ctx context.Context, ids []string) error {
	var reports []ingest.Report

	if len(ids) == 0 {
		all, err := a.engine.RefreshAll(ctx)
		if err != nil {
			return err
		}
		for _, r := range all {
			reports = append(reports, r)
		}
	} else {
		for _, id := range ids {
			r, err := a.engine.RefreshSource(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to refresh %s: %w", id, err)
			}
			reports = append(reports, r)
		}
	}

	for _, r := range reports {
		if r.State == ingest.StateFailed {
			fmt.Printf("%s\tfailed\t%s\n", r.SourceID, r.Error)
			continue
		}
		fmt.Printf("%s\tadded=%d\tduplicate=%d\tinvalid=%d\tfailed=%d\tpartial=%t\n",
			r.SourceID, r.Added, r.SkippedDuplicate, r.SkippedInvalid, r.Failed, r.Partial)
	}

	return nil
}

func (a *app) list(ctx context.Context) error {
	sources, err := a.sources.ListSources(ctx)
	if err != nil {
		return err
	}

	for _, s := range sources {
		count, err := a.articles.CountArticlesBySource(ctx, s.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\t%d articles\n", s.ID, s.Name, s.FeedURL, count)
	}

	return nil
}
