package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/rss-notify/app/feed"
)

var ErrFeedNotFound = errors.New("feed not found in configuration")

// Store owns the configuration document and the per-site watermarks in it.
// The whole document is one physical unit, so every read-modify-write runs
// inside a single global critical section.
type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

// LoadAll reads every site entry in document order.
func (s *Store) LoadAll() ([]FeedConfig, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	configs := make([]FeedConfig, 0, len(doc.Sites))
	seen := make(map[string]bool, len(doc.Sites))

	for i := range doc.Sites {
		site, err := decodeSite(&doc.Sites[i])
		if err != nil {
			slog.Warn("Skipping invalid site entry", "index", i, "name", siteName(&doc.Sites[i]), "error", err)
			continue
		}
		if seen[site.Name] {
			slog.Warn("Skipping duplicate site entry", "index", i, "name", site.Name)
			continue
		}
		seen[site.Name] = true

		enabled := true
		if site.Enabled != nil {
			enabled = *site.Enabled
		}

		configs = append(configs, FeedConfig{
			Name:     site.Name,
			URL:      site.URL,
			LastSeen: time.Unix(site.LastSeen, 0).UTC(),
			Enabled:  enabled,
			Timeout:  time.Duration(site.Timeout) * time.Second,
			Excerpt:  site.Excerpt,
			Filters:  site.Filters,
		})
	}

	return configs, nil
}

// Update raises the persisted watermark of one site to t. The comparison is
// made against the document on disk, not against any earlier snapshot, and
// the value is only written when t is strictly newer. It reports whether the
// document changed.
func (s *Store) Update(name string, t time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("failed to read file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return false, fmt.Errorf("failed to parse YAML: %w", err)
	}

	site, err := findSite(&root, name)
	if err != nil {
		return false, err
	}

	current, valueNode, err := lastSeenNode(site)
	if err != nil {
		return false, fmt.Errorf("site %q: %w", name, err)
	}

	next := t.Unix()
	if next <= current {
		slog.Debug("Watermark not advanced", "feed", name, "persisted", current, "candidate", next)
		return false, nil
	}

	value := strconv.FormatInt(next, 10)
	if valueNode == nil {
		site.Content = append(site.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "last_seen"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: value},
		)
	} else {
		valueNode.Kind = yaml.ScalarNode
		valueNode.Tag = "!!int"
		valueNode.Style = 0
		valueNode.Value = value
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return false, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return false, fmt.Errorf("failed to encode YAML: %w", err)
	}

	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return false, err
	}

	slog.Debug("Watermark written", "feed", name, "last_seen", next)
	return true, nil
}

func findSite(root *yaml.Node, name string) (*yaml.Node, error) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("empty configuration document")
	}

	sites := mappingValue(root.Content[0], "sites")
	if sites == nil || sites.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("configuration has no sites list")
	}

	for _, site := range sites.Content {
		if site.Kind != yaml.MappingNode {
			continue
		}
		if n := mappingValue(site, "name"); n != nil && n.Value == name {
			return site, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrFeedNotFound, name)
}

func lastSeenNode(site *yaml.Node) (int64, *yaml.Node, error) {
	node := mappingValue(site, "last_seen")
	current, err := parseLastSeen(node)
	if err != nil {
		return 0, nil, err
	}
	return current, node, nil
}

// parseLastSeen accepts a missing or null value as the epoch and otherwise
// requires a base-10 integer, quoted or not.
func parseLastSeen(node *yaml.Node) (int64, error) {
	if node == nil || node.Tag == "!!null" {
		return 0, nil
	}
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("invalid last_seen: not a scalar")
	}
	if node.Value == "" {
		return 0, nil
	}

	current, err := strconv.ParseInt(node.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid last_seen %q: %w", node.Value, err)
	}
	return current, nil
}

// decodeSite validates one entry of the sites list on its own, so a bad
// entry never hides the others.
func decodeSite(node *yaml.Node) (siteEntry, error) {
	var site siteEntry
	if node.Kind != yaml.MappingNode {
		return site, fmt.Errorf("site entry is not a mapping")
	}
	if err := node.Decode(&site); err != nil {
		return site, fmt.Errorf("failed to decode site: %w", err)
	}

	lastSeen, err := parseLastSeen(mappingValue(node, "last_seen"))
	if err != nil {
		return site, err
	}
	site.LastSeen = lastSeen

	return site, validateSite(site)
}

func siteName(site *yaml.Node) string {
	if n := mappingValue(site, "name"); n != nil {
		return n.Value
	}
	return ""
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0o600,
		renameio.WithTempDir(filepath.Dir(path)), renameio.WithExistingPermissions()); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func validateSite(site siteEntry) error {
	requiredFields := map[string]string{
		"site name": site.Name,
		"site URL":  site.URL,
	}
	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if site.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	for i, filter := range site.Filters {
		if !feed.ValidField(filter.Field) {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
