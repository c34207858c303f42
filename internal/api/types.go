package api

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-pull/internal/database"
	"github.com/lysyi3m/rss-pull/internal/feed"
	"github.com/lysyi3m/rss-pull/internal/ingest"
)

type EngineInterface interface {
	AddSource(ctx context.Context, feedURL string) (string, error)
	RefreshSource(ctx context.Context, sourceID string) (ingest.Report, error)
	RefreshAll(ctx context.Context) (map[string]ingest.Report, error)
}

type GeneratorInterface interface {
	Run(channel feed.Channel, articles []database.Article, sources map[string]database.Source) (string, error)
}

type HealthReporter interface {
	Health() map[string]any
}

var (
	_ EngineInterface    = (*ingest.Engine)(nil)
	_ GeneratorInterface = (*feed.Generator)(nil)
)

type Handler struct {
	engine    EngineInterface
	sources   database.SourceStore
	articles  database.ArticleStore
	generator GeneratorInterface
	scheduler HealthReporter
	baseURL   string
	version   string
}

type sourceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FeedURL   string    `json:"feed_url"`
	SiteURL   string    `json:"site_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type articleResponse struct {
	ID            string    `json:"id"`
	SourceID      string    `json:"source_id"`
	PostID        string    `json:"post_id"`
	Title         string    `json:"title"`
	URL           string    `json:"url,omitempty"`
	Read          bool      `json:"read"`
	Summary       string    `json:"summary"`
	Content       string    `json:"content,omitempty"`
	DatePublished time.Time `json:"date_published"`
	DateFetched   time.Time `json:"date_fetched"`
}

type addSourceRequest struct {
	URL string `json:"url" binding:"required"`
}

type markReadRequest struct {
	Read *bool `json:"read"`
}

func toSourceResponse(s database.Source) sourceResponse {
	return sourceResponse{
		ID:        s.ID,
		Name:      s.Name,
		FeedURL:   s.FeedURL,
		SiteURL:   s.SiteURL,
		CreatedAt: s.CreatedAt,
	}
}

// toArticleResponse omits the body unless withContent is set; list views stay small
func toArticleResponse(a database.Article, withContent bool) articleResponse {
	resp := articleResponse{
		ID:            a.ID,
		SourceID:      a.SourceID,
		PostID:        a.PostID,
		Title:         a.Title,
		URL:           a.URL,
		Read:          a.Read,
		Summary:       a.Summary,
		DatePublished: a.DatePublished,
		DateFetched:   a.DateFetched,
	}
	if withContent {
		resp.Content = a.Content
	}
	return resp
}
