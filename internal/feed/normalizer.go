package feed

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/rss-pull/internal/database"
)

const (
	MaxSummaryLength = 250
	TruncationMarker = "..."
	NoTitle          = "[no title]"
)

// Normalize turns a raw entry into an article record ready for insertion.
// It has no side effects; fetchedAt is taken as given so one refresh shares one timestamp.
func Normalize(entry Entry, sourceID string, fetchedAt time.Time) (database.Article, error) {
	if entry.PostID == "" {
		return database.Article{}, ErrEntryMissingIdentifier
	}
	if entry.Published == nil || entry.Published.IsZero() {
		return database.Article{}, ErrMissingPublicationDate
	}

	return database.Article{
		SourceID:      sourceID,
		PostID:        entry.PostID,
		Title:         normalizeTitle(entry.Title),
		URL:           entry.Link,
		Read:          false,
		Summary:       TruncateSummary(entry.Summary),
		Content:       selectContent(entry),
		DatePublished: entry.Published.UTC(),
		DateFetched:   fetchedAt.UTC(),
	}, nil
}

// TruncateSummary limits s to MaxSummaryLength characters, appending
// TruncationMarker when something was cut. Characters are counted after NFC
// composition, but the returned text is always a prefix of s.
func TruncateSummary(s string) string {
	if utf8.RuneCountInString(norm.NFC.String(s)) <= MaxSummaryLength {
		return s
	}

	// Walk normalization segments so that a base character and its
	// combining marks are never split.
	count, end := 0, 0
	for end < len(s) {
		n := norm.NFC.NextBoundaryInString(s[end:], true)
		if n <= 0 {
			n = len(s) - end
		}
		width := utf8.RuneCountInString(norm.NFC.String(s[end : end+n]))
		if count+width > MaxSummaryLength {
			break
		}
		count += width
		end += n
	}

	return s[:end] + TruncationMarker
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return NoTitle
	}
	return title
}

// selectContent prefers the first non-empty content payload and falls back to
// the untruncated summary.
func selectContent(entry Entry) string {
	for _, content := range entry.Contents {
		if strings.TrimSpace(content) != "" {
			return content
		}
	}
	return entry.Summary
}
