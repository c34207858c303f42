package feed

import (
	"time"
)

// ParsedFeed is a feed document reduced to what ingestion needs
type ParsedFeed struct {
	Title       string
	SiteURL     string // Feed's <link>, may be empty
	Description string
	Language    string
	Entries     []Entry
}

// Entry is one raw feed entry. Empty strings mean the field was absent.
type Entry struct {
	PostID    string   // RSS guid or Atom id
	Title     string
	Link      string
	Summary   string   // RSS description or Atom summary
	Contents  []string // Distinct content payloads, e.g. content:encoded or Atom content
	Published *time.Time
}
