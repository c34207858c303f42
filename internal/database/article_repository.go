package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const articleColumns = `id, source_id, post_id, title, url, is_read, summary, content,
	date_published, date_published_nsec, date_fetched, date_fetched_nsec`

// ArticleRepository handles database operations for articles
type ArticleRepository struct {
	db *DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// InsertArticleIfAbsent stores the article unless one with the same
// (source_id, post_id) already exists. The check and the insert are one statement.
func (r *ArticleRepository) InsertArticleIfAbsent(ctx context.Context, article Article) (InsertResult, error) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	publishedSec, publishedNsec := toUnix(article.DatePublished)
	fetchedSec, fetchedNsec := toUnix(article.DateFetched)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, post_id) DO NOTHING
	`, article.ID, article.SourceID, article.PostID, article.Title, article.URL, article.Read,
		article.Summary, article.Content, publishedSec, publishedNsec, fetchedSec, fetchedNsec)
	if err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}
	if n == 0 {
		return AlreadyExists, nil
	}

	return Inserted, nil
}

// GetArticle retrieves an article by its ID
func (r *ArticleRepository) GetArticle(ctx context.Context, id string) (*Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return &article, nil
}

// ListArticles returns all articles, most recently published first.
// Articles published at the same instant keep their insertion order.
func (r *ArticleRepository) ListArticles(ctx context.Context) ([]Article, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		ORDER BY date_published DESC, date_published_nsec DESC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	return collectArticles(rows)
}

// ListArticlesBySource returns the newest articles of one source; limit <= 0 means no limit
func (r *ArticleRepository) ListArticlesBySource(ctx context.Context, sourceID string, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE source_id = ?
		ORDER BY date_published DESC, date_published_nsec DESC, rowid ASC
		LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles by source: %w", err)
	}

	return collectArticles(rows)
}

// MarkRead updates the read flag, the only mutable article field
func (r *ArticleRepository) MarkRead(ctx context.Context, id string, read bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE articles SET is_read = ? WHERE id = ?`, read, id)
	if err != nil {
		return fmt.Errorf("failed to update article read status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update article read status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// CountArticles returns the total number of articles
func (r *ArticleRepository) CountArticles(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

// CountArticlesBySource returns the number of articles stored for one source
func (r *ArticleRepository) CountArticlesBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles WHERE source_id = ?", sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count for source: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (Article, error) {
	var article Article
	var publishedSec, publishedNsec, fetchedSec, fetchedNsec int64
	err := row.Scan(
		&article.ID, &article.SourceID, &article.PostID, &article.Title, &article.URL,
		&article.Read, &article.Summary, &article.Content,
		&publishedSec, &publishedNsec, &fetchedSec, &fetchedNsec,
	)
	if err != nil {
		return Article{}, err
	}

	article.DatePublished = fromUnix(publishedSec, publishedNsec)
	article.DateFetched = fromUnix(fetchedSec, fetchedNsec)
	return article, nil
}

func collectArticles(rows *sql.Rows) ([]Article, error) {
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}
