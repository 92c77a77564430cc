package store

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/rss-notify/app/feed"
)

// FeedConfig is one site entry of the configuration document. It is a
// snapshot: the document on disk stays the source of truth for LastSeen.
type FeedConfig struct {
	Name     string
	URL      string
	LastSeen time.Time
	Enabled  bool
	Timeout  time.Duration // zero means the global fetch timeout
	Excerpt  bool
	Filters  []feed.ConfigFilter
}

type document struct {
	Sites []yaml.Node `yaml:"sites"`
}

type siteEntry struct {
	Name     string              `yaml:"name"`
	URL      string              `yaml:"url"`
	LastSeen int64               `yaml:"-"` // seconds since epoch, see parseLastSeen
	Enabled  *bool               `yaml:"enabled"`
	Timeout  int                 `yaml:"timeout"` // seconds
	Excerpt  bool                `yaml:"excerpt"`
	Filters  []feed.ConfigFilter `yaml:"filters"`
}
