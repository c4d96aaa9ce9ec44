package feed

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
)

var ErrUnsupportedFormat = errors.New("unsupported feed format")

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run validates an RSS or Atom document and returns its title and raw entries.
// gofeed identifies and validates the feed; entries are kept as raw node
// trees so attribute-level details (media groups, enclosure types) survive.
func (p *Parser) Run(data []byte) (*Document, error) {
	var feedType string
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		feedType = "rss"
	case gofeed.FeedTypeAtom:
		feedType = "atom"
	default:
		return nil, ErrUnsupportedFormat
	}

	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	root, err := decodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed entries: %w", err)
	}

	return &Document{
		Title:   DecodeText(parsed.Title),
		Type:    feedType,
		Entries: entriesOf(root),
	}, nil
}
