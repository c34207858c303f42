package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS, Atom or JSON feed document. Errors wrap ErrParse.
func (p *Parser) Run(data []byte) (*ParsedFeed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}

	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	parsed := &ParsedFeed{
		Title:       strings.TrimSpace(feed.Title),
		SiteURL:     strings.TrimSpace(feed.Link),
		Description: feed.Description,
		Language:    feed.Language,
	}

	if parsed.SiteURL == "" && len(feed.Links) > 0 {
		parsed.SiteURL = strings.TrimSpace(feed.Links[0])
	}

	parsed.Entries = make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed.Entries = append(parsed.Entries, p.convertItem(item))
	}

	return parsed, nil
}

func (p *Parser) convertItem(item *gofeed.Item) Entry {
	entry := Entry{
		PostID:  strings.TrimSpace(item.GUID),
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Summary: item.Description,
	}

	if entry.Link == "" && len(item.Links) > 0 {
		entry.Link = strings.TrimSpace(item.Links[0])
	}

	if item.Content != "" {
		entry.Contents = []string{item.Content}
	}

	// Atom entries may carry only <updated>
	if item.PublishedParsed != nil {
		published := *item.PublishedParsed
		entry.Published = &published
	} else if item.UpdatedParsed != nil {
		updated := *item.UpdatedParsed
		entry.Published = &updated
	}

	return entry
}
