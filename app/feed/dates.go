package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseDate parses RFC 822/1123/3339 and most ad-hoc publish dates. Results
// are truncated to whole seconds because watermarks persist as epoch seconds.
// An unparseable value yields the zero time.
func ParseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}
	}

	return time.Unix(t.Unix(), 0).UTC()
}
