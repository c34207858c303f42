package database

import "context"

type SourceStore interface {
	AddSource(ctx context.Context, name, feedURL, siteURL string) (string, error)
	GetSource(ctx context.Context, id string) (*Source, error)
	ListSources(ctx context.Context) ([]Source, error)
	CountSources(ctx context.Context) (int, error)
}

type ArticleStore interface {
	InsertArticleIfAbsent(ctx context.Context, article Article) (InsertResult, error)
	GetArticle(ctx context.Context, id string) (*Article, error)
	ListArticles(ctx context.Context) ([]Article, error)
	ListArticlesBySource(ctx context.Context, sourceID string, limit int) ([]Article, error)
	MarkRead(ctx context.Context, id string, read bool) error
	CountArticles(ctx context.Context) (int, error)
	CountArticlesBySource(ctx context.Context, sourceID string) (int, error)
}

var (
	_ SourceStore  = (*SourceRepository)(nil)
	_ ArticleStore = (*ArticleRepository)(nil)
)
