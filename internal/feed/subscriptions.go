package feed

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Subscription struct {
	URL string `yaml:"url"`
}

type subscriptionsFile struct {
	Feeds []Subscription `yaml:"feeds"`
}

// LoadSubscriptions reads a YAML list of feed URLs.
// A missing file yields an empty list; duplicate URLs are dropped.
func LoadSubscriptions(path string) ([]Subscription, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file subscriptionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	seen := make(map[string]bool, len(file.Feeds))
	subscriptions := make([]Subscription, 0, len(file.Feeds))
	for i, sub := range file.Feeds {
		sub.URL = strings.TrimSpace(sub.URL)
		if err := ValidateURL(sub.URL); err != nil {
			return nil, fmt.Errorf("invalid feed at index %d: %w", i, err)
		}
		if seen[sub.URL] {
			continue
		}
		seen[sub.URL] = true
		subscriptions = append(subscriptions, sub)
	}

	return subscriptions, nil
}

// ValidateURL checks that raw is an absolute http or https URL
func ValidateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("feed URL is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in URL")
	}

	return nil
}
