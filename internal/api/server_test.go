package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lysyi3m/rss-pull/internal/database"
	"github.com/lysyi3m/rss-pull/internal/feed"
	"github.com/lysyi3m/rss-pull/internal/ingest"
)

// MockEngine registers sources directly and reports canned refresh results
type MockEngine struct {
	sources  database.SourceStore
	failURLs map[string]error
}

func (m *MockEngine) AddSource(ctx context.Context, feedURL string) (string, error) {
	if err, ok := m.failURLs[feedURL]; ok {
		return "", err
	}
	return m.sources.AddSource(ctx, "Feed at "+feedURL, feedURL, "")
}

func (m *MockEngine) RefreshSource(ctx context.Context, sourceID string) (ingest.Report, error) {
	if _, err := m.sources.GetSource(ctx, sourceID); err != nil {
		return ingest.Report{}, err
	}
	return ingest.Report{SourceID: sourceID, Added: 2, State: ingest.StateDone}, nil
}

func (m *MockEngine) RefreshAll(ctx context.Context) (map[string]ingest.Report, error) {
	sources, err := m.sources.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	reports := make(map[string]ingest.Report, len(sources))
	for _, s := range sources {
		reports[s.ID] = ingest.Report{SourceID: s.ID, State: ingest.StateDone}
	}
	return reports, nil
}

type MockHealth struct{}

func (MockHealth) Health() map[string]any {
	return map[string]any{"total_runs": 3}
}

type testServer struct {
	router   *gin.Engine
	sources  *database.SourceRepository
	articles *database.ArticleRepository
	password string
}

func setupTestServer(t *testing.T, password string) *testServer {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	sources := database.NewSourceRepository(db)
	articles := database.NewArticleRepository(db)

	engine := &MockEngine{
		sources: sources,
		failURLs: map[string]error{
			"https://down.example.com/feed": &feed.FetchError{Kind: feed.ErrNetwork, URL: "https://down.example.com/feed"},
		},
	}

	registry := prometheus.NewRegistry()
	ingest.NewMetrics(registry)

	handler := NewHandler(engine, sources, articles, MockHealth{}, "http://localhost:8080/", "test")

	return &testServer{
		router:   NewServer(handler, registry, "admin", password),
		sources:  sources,
		articles: articles,
		password: password,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if s.password != "" {
		req.SetBasicAuth("admin", s.password)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seed(t *testing.T) (string, []string) {
	t.Helper()
	ctx := context.Background()

	sourceID, err := s.sources.AddSource(ctx, "Example", "https://example.com/feed.xml", "https://example.com")
	if err != nil {
		t.Fatalf("Failed to add source: %v", err)
	}

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		article := database.Article{
			SourceID:      sourceID,
			PostID:        fmt.Sprintf("post-%d", i),
			Title:         fmt.Sprintf("Post %d", i),
			URL:           fmt.Sprintf("https://example.com/%d", i),
			Summary:       "Summary",
			Content:       "<p>Body</p>",
			DatePublished: base.Add(time.Duration(i) * time.Hour),
			DateFetched:   base,
		}
		if _, err := s.articles.InsertArticleIfAbsent(ctx, article); err != nil {
			t.Fatalf("Failed to insert article: %v", err)
		}
	}

	articles, err := s.articles.ListArticles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range articles {
		ids = append(ids, a.ID)
	}
	return sourceID, ids
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealthIsPublic(t *testing.T) {
	s := setupTestServer(t, "secret")
	s.seed(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body map[string]any
	decode(t, w, &body)
	if body["sources"] != float64(1) {
		t.Errorf("Expected 1 source, got %v", body["sources"])
	}
	if body["articles"] != float64(3) {
		t.Errorf("Expected 3 articles, got %v", body["articles"])
	}
	if _, ok := body["scheduler"]; !ok {
		t.Error("Expected scheduler health in response")
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := setupTestServer(t, "secret")

	tests := []struct {
		name     string
		user     string
		pass     string
		setAuth  bool
		expected int
	}{
		{"no credentials", "", "", false, http.StatusUnauthorized},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"wrong user", "root", "secret", true, http.StatusUnauthorized},
		{"valid", "admin", "secret", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
			if tt.expected == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("Expected WWW-Authenticate header")
			}
		})
	}
}

func TestAuthDisabledWithoutPassword(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(t, http.MethodGet, "/api/sources", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestAddSource(t *testing.T) {
	s := setupTestServer(t, "secret")

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"created", `{"url":"https://blog.example.com/rss"}`, http.StatusCreated},
		{"duplicate", `{"url":"https://blog.example.com/rss"}`, http.StatusConflict},
		{"fetch failure", `{"url":"https://down.example.com/feed"}`, http.StatusBadGateway},
		{"invalid url", `{"url":"ftp://example.com/feed"}`, http.StatusBadRequest},
		{"missing url", `{}`, http.StatusBadRequest},
		{"not json", `url=https://example.com`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/sources", tt.body)
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}

	w := s.do(t, http.MethodGet, "/api/sources", "")
	var body struct {
		Sources []sourceResponse `json:"sources"`
		Total   int              `json:"total"`
	}
	decode(t, w, &body)
	if body.Total != 1 || body.Sources[0].FeedURL != "https://blog.example.com/rss" {
		t.Errorf("Expected the single created source, got %+v", body)
	}
}

func TestGetSource(t *testing.T) {
	s := setupTestServer(t, "secret")
	sourceID, _ := s.seed(t)

	w := s.do(t, http.MethodGet, "/api/sources/"+sourceID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var source sourceResponse
	decode(t, w, &source)
	if source.Name != "Example" || source.SiteURL != "https://example.com" {
		t.Errorf("Unexpected source: %+v", source)
	}

	w = s.do(t, http.MethodGet, "/api/sources/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRefreshEndpoints(t *testing.T) {
	s := setupTestServer(t, "secret")
	sourceID, _ := s.seed(t)

	w := s.do(t, http.MethodPost, "/api/sources/"+sourceID+"/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var report ingest.Report
	decode(t, w, &report)
	if report.Added != 2 || report.State != ingest.StateDone {
		t.Errorf("Unexpected report: %+v", report)
	}

	w = s.do(t, http.MethodPost, "/api/sources/missing/refresh", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var all struct {
		Reports map[string]ingest.Report `json:"reports"`
		Total   int                      `json:"total"`
	}
	decode(t, w, &all)
	if all.Total != 1 {
		t.Errorf("Expected 1 report, got %d", all.Total)
	}
	if _, ok := all.Reports[sourceID]; !ok {
		t.Errorf("Expected report for %s", sourceID)
	}
}

func TestListArticles(t *testing.T) {
	s := setupTestServer(t, "secret")
	sourceID, _ := s.seed(t)

	type listBody struct {
		Articles []articleResponse `json:"articles"`
		Total    int               `json:"total"`
	}

	w := s.do(t, http.MethodGet, "/api/articles", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var body listBody
	decode(t, w, &body)
	if body.Total != 3 {
		t.Fatalf("Expected 3 articles, got %d", body.Total)
	}
	if body.Articles[0].PostID != "post-2" {
		t.Errorf("Expected newest article first, got %s", body.Articles[0].PostID)
	}
	if body.Articles[0].Content != "" {
		t.Error("Expected list view without content")
	}

	w = s.do(t, http.MethodGet, "/api/articles?limit=2", "")
	body = listBody{}
	decode(t, w, &body)
	if body.Total != 2 {
		t.Errorf("Expected 2 articles with limit, got %d", body.Total)
	}

	w = s.do(t, http.MethodGet, "/api/articles?source_id="+sourceID+"&limit=1", "")
	body = listBody{}
	decode(t, w, &body)
	if body.Total != 1 {
		t.Errorf("Expected 1 article for source with limit, got %d", body.Total)
	}

	w = s.do(t, http.MethodGet, "/api/articles?source_id=missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown source, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/articles?limit=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad limit, got %d", w.Code)
	}
}

func TestListArticlesUnreadWithLimit(t *testing.T) {
	s := setupTestServer(t, "secret")
	sourceID, ids := s.seed(t)

	if err := s.articles.MarkRead(context.Background(), ids[0], true); err != nil {
		t.Fatal(err)
	}

	type listBody struct {
		Articles []articleResponse `json:"articles"`
		Total    int               `json:"total"`
	}

	for _, path := range []string{
		"/api/articles?unread=true&limit=2",
		"/api/articles?source_id=" + sourceID + "&unread=true&limit=2",
	} {
		w := s.do(t, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200 for %s, got %d", path, w.Code)
		}
		var body listBody
		decode(t, w, &body)
		if body.Total != 2 {
			t.Fatalf("Expected 2 unread articles for %s, got %d", path, body.Total)
		}
		if body.Articles[0].PostID != "post-1" || body.Articles[1].PostID != "post-0" {
			t.Errorf("Expected post-1 and post-0 for %s, got %s and %s", path, body.Articles[0].PostID, body.Articles[1].PostID)
		}
	}
}

func TestGetArticleAndMarkRead(t *testing.T) {
	s := setupTestServer(t, "secret")
	_, ids := s.seed(t)

	w := s.do(t, http.MethodGet, "/api/articles/"+ids[0], "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var article articleResponse
	decode(t, w, &article)
	if article.Content != "<p>Body</p>" {
		t.Errorf("Expected content in detail view, got '%s'", article.Content)
	}
	if article.Read {
		t.Error("Expected article to start unread")
	}

	w = s.do(t, http.MethodPost, "/api/articles/"+ids[0]+"/read", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/articles?unread=true", "")
	var body struct {
		Total int `json:"total"`
	}
	decode(t, w, &body)
	if body.Total != 2 {
		t.Errorf("Expected 2 unread articles, got %d", body.Total)
	}

	w = s.do(t, http.MethodPost, "/api/articles/"+ids[0]+"/read", `{"read":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	stored, err := s.articles.GetArticle(context.Background(), ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if stored.Read {
		t.Error("Expected article to be unread again")
	}

	w = s.do(t, http.MethodGet, "/api/articles/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	w = s.do(t, http.MethodPost, "/api/articles/missing/read", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetFeed(t *testing.T) {
	s := setupTestServer(t, "secret")
	s.seed(t)

	w := s.do(t, http.MethodGet, "/feed.xml", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected XML content type, got %s", ct)
	}
	if w.Header().Get("X-Feed-Items") != "3" {
		t.Errorf("Expected 3 feed items, got %s", w.Header().Get("X-Feed-Items"))
	}

	body := w.Body.String()
	if !strings.Contains(body, `<atom:link href="http://localhost:8080/feed.xml"`) {
		t.Error("Expected self link built from base URL")
	}
	if !strings.Contains(body, `<source url="https://example.com/feed.xml">Example</source>`) {
		t.Error("Expected items attributed to their source")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t, "secret")

	w := s.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "rsspull_refresh_duration_seconds") {
		t.Error("Expected ingestion metrics in output")
	}
}
