package feed

import (
	"encoding/xml"
	"time"
)

// Item is one completed feed entry. A zero PubDate means the entry carried no
// parseable publish date.
type Item struct {
	Title   string
	Link    string
	PubDate time.Time
}

// Handler receives parser events in document order. Names are qualified
// ("media:title") whenever the element carries a namespace prefix.
type Handler interface {
	Open(name string, attrs []xml.Attr)
	Text(chunk string)
	Close(name string)
}

// Vocabulary names the elements the Machine scopes fields by.
type Vocabulary struct {
	Item  string
	Title string
	Link  string
	Dates []string // preference order

	// LinkHref takes the link from the href attribute (Atom) instead of
	// the element text.
	LinkHref bool
}

var (
	RSS = Vocabulary{
		Item:  "item",
		Title: "title",
		Link:  "link",
		Dates: []string{"pubDate", "dc:date"},
	}

	Atom = Vocabulary{
		Item:     "entry",
		Title:    "title",
		Link:     "link",
		Dates:    []string{"published", "updated"},
		LinkHref: true,
	}
)

// Format is the wire format detected for a response body.
type Format string

const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
	FormatJSON Format = "json"
)

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
