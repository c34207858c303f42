package database

import (
	"errors"
	"time"
)

var (
	ErrDuplicateSource = errors.New("source with this feed URL already exists")
	ErrNotFound        = errors.New("not found")
)

type Source struct {
	ID        string
	Name      string // Feed title at subscription time
	FeedURL   string // Fetch endpoint, immutable
	SiteURL   string // Human-facing link from the feed, may be empty
	CreatedAt time.Time
}

type Article struct {
	ID            string
	SourceID      string
	PostID        string // Feed-provided entry identifier (GUID / Atom id)
	Title         string
	URL           string
	Read          bool
	Summary       string // At most 250 characters plus a "..." marker
	Content       string // Full body, or the untruncated summary
	DatePublished time.Time
	DateFetched   time.Time
}

type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyExists
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}
