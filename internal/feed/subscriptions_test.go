package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return path
}

func TestLoadSubscriptions(t *testing.T) {
	path := writeFile(t, `feeds:
  - url: https://example.com/feed.xml
  - url: "  http://blog.example.org/atom  "
  - url: https://example.com/feed.xml
`)

	subs, err := LoadSubscriptions(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(subs) != 2 {
		t.Fatalf("Expected 2 subscriptions, got %d", len(subs))
	}
	if subs[0].URL != "https://example.com/feed.xml" {
		t.Errorf("Expected first URL 'https://example.com/feed.xml', got '%s'", subs[0].URL)
	}
	if subs[1].URL != "http://blog.example.org/atom" {
		t.Errorf("Expected trimmed URL 'http://blog.example.org/atom', got '%s'", subs[1].URL)
	}
}

func TestLoadSubscriptionsMissingFile(t *testing.T) {
	subs, err := LoadSubscriptions(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("Expected no subscriptions, got %d", len(subs))
	}
}

func TestLoadSubscriptionsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "feeds: [\n"},
		{"empty url", "feeds:\n  - url: \"\"\n"},
		{"bad scheme", "feeds:\n  - url: ftp://example.com/feed\n"},
		{"no host", "feeds:\n  - url: https:///feed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadSubscriptions(writeFile(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
