package feed

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected time.Time
	}{
		{"RFC1123 GMT", "Mon, 03 Jul 2023 12:00:00 GMT", time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)},
		{"RFC1123Z offset", "Mon, 03 Jul 2023 14:00:00 +0200", time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)},
		{"RFC3339", "2023-07-03T12:00:00Z", time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)},
		{"fractional seconds truncated", "2023-07-03T12:00:00.999Z", time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)},
		{"surrounding whitespace", "\n   Mon, 03 Jul 2023 12:00:00 GMT\n  ", time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)},
		{"garbage", "garbage", time.Time{}},
		{"empty", "", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.raw)
			if !got.Equal(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
