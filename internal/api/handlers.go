package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-pull/internal/database"
	"github.com/lysyi3m/rss-pull/internal/feed"
)

const feedItemLimit = 100

// NewHandler builds the HTTP handlers. scheduler may be nil when no
// background refresh is running.
func NewHandler(engine EngineInterface, sources database.SourceStore, articles database.ArticleStore,
	scheduler HealthReporter, baseURL, version string) *Handler {
	return &Handler{
		engine:    engine,
		sources:   sources,
		articles:  articles,
		generator: feed.NewGenerator(),
		scheduler: scheduler,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	health := map[string]any{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if count, err := h.sources.CountSources(ctx); err == nil {
		health["sources"] = count
	}
	if count, err := h.articles.CountArticles(ctx); err == nil {
		health["articles"] = count
	}
	if h.scheduler != nil {
		health["scheduler"] = h.scheduler.Health()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources, err := h.sources.ListSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	resp := make([]sourceResponse, 0, len(sources))
	for _, s := range sources {
		resp = append(resp, toSourceResponse(s))
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": resp,
		"total":   len(resp),
	})
}

func (h *Handler) APIGetSource(c *gin.Context) {
	id := c.Param("id")

	source, err := h.sources.GetSource(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get_source", err)
		return
	}

	c.JSON(http.StatusOK, toSourceResponse(*source))
}

func (h *Handler) APIAddSource(c *gin.Context) {
	var req addSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be JSON with a url field"})
		return
	}

	feedURL := strings.TrimSpace(req.URL)
	if err := feed.ValidateURL(feedURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feed URL", "details": err.Error()})
		return
	}

	id, err := h.engine.AddSource(c.Request.Context(), feedURL)
	if err != nil {
		writeError(c, "add_source", err)
		return
	}

	source, err := h.sources.GetSource(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get_source", err)
		return
	}

	c.JSON(http.StatusCreated, toSourceResponse(*source))
}

func (h *Handler) APIRefreshSource(c *gin.Context) {
	report, err := h.engine.RefreshSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "refresh_source", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) APIRefreshAll(c *gin.Context) {
	reports, err := h.engine.RefreshAll(c.Request.Context())
	if err != nil {
		writeError(c, "refresh_all", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   len(reports),
	})
}

func (h *Handler) APIListArticles(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	unreadOnly := c.Query("unread") == "true"

	// The store can only apply the limit when no filter runs afterwards.
	storeLimit := limit
	if unreadOnly {
		storeLimit = 0
	}

	var (
		articles []database.Article
		err      error
	)
	if sourceID := c.Query("source_id"); sourceID != "" {
		if _, err := h.sources.GetSource(ctx, sourceID); err != nil {
			writeError(c, "get_source", err)
			return
		}
		articles, err = h.articles.ListArticlesBySource(ctx, sourceID, storeLimit)
	} else {
		articles, err = h.articles.ListArticles(ctx)
	}
	if err != nil {
		writeError(c, "list_articles", err)
		return
	}

	resp := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		if limit > 0 && len(resp) == limit {
			break
		}
		if unreadOnly && a.Read {
			continue
		}
		resp = append(resp, toArticleResponse(a, false))
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": resp,
		"total":    len(resp),
	})
}

func (h *Handler) APIGetArticle(c *gin.Context) {
	article, err := h.articles.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "get_article", err)
		return
	}

	c.JSON(http.StatusOK, toArticleResponse(*article, true))
}

func (h *Handler) APIMarkRead(c *gin.Context) {
	read := true

	var req markReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be JSON"})
			return
		}
		if req.Read != nil {
			read = *req.Read
		}
	}

	id := c.Param("id")
	if err := h.articles.MarkRead(c.Request.Context(), id, read); err != nil {
		writeError(c, "mark_read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "read": read})
}

func (h *Handler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	articles, err := h.articles.ListArticles(ctx)
	if err != nil {
		writeError(c, "list_articles", err)
		return
	}
	if len(articles) > feedItemLimit {
		articles = articles[:feedItemLimit]
	}

	sources, err := h.sources.ListSources(ctx)
	if err != nil {
		writeError(c, "list_sources", err)
		return
	}
	byID := make(map[string]database.Source, len(sources))
	for _, s := range sources {
		byID[s.ID] = s
	}

	channel := feed.Channel{
		Title:     "rss-pull",
		Link:      h.baseURL,
		Generator: "rss-pull " + h.version,
	}
	if h.baseURL != "" {
		channel.SelfURL = h.baseURL + "/feed.xml"
	}

	rss, err := h.generator.Run(channel, articles, byID)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	c.String(http.StatusOK, rss)
}

// writeError maps store and fetch errors to HTTP status codes
func writeError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, database.ErrDuplicateSource):
		c.JSON(http.StatusConflict, gin.H{"error": "Source already exists"})
	case errors.Is(err, feed.ErrNetwork), errors.Is(err, feed.ErrParse), errors.Is(err, feed.ErrEmptyFeed):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to fetch feed",
			"kind":    feed.ErrorKind(err),
			"details": err.Error(),
		})
	default:
		slog.Error("Request failed", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
