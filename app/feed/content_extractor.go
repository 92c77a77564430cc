package feed

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

const DefaultExcerptLength = 200

type ContentExtractor struct {
	maxRunes int
}

func NewContentExtractor(maxRunes int) *ContentExtractor {
	if maxRunes <= 0 {
		maxRunes = DefaultExcerptLength
	}
	return &ContentExtractor{maxRunes: maxRunes}
}

// Run extracts the readable text of an article page and returns its first
// maxRunes runes with whitespace collapsed.
func (e *ContentExtractor) Run(r io.Reader, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(r, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		text = strings.Join(strings.Fields(article.Excerpt), " ")
	}
	if text == "" {
		return "", fmt.Errorf("no content extracted from page")
	}

	runes := []rune(text)
	if len(runes) > e.maxRunes {
		text = strings.TrimSpace(string(runes[:e.maxRunes])) + "…"
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(article.TextContent))

	return text, nil
}
