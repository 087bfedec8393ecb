package aggregate

import (
	"strconv"
	"strings"
	"time"
)

// parseNumeric parses a record field according to kind. Failures yield zero:
// a malformed cost or count must not abort the record.
func parseNumeric(raw string, kind ParseKind) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if kind == ParseCurrency {
		s = strings.ReplaceAll(s, "$", "")
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if kind == ParseInt {
		// Portal exports sometimes carry integer counts as "3.0".
		return float64(int64(v))
	}
	return v
}

// timestampLayouts covers the portal's SODA ISO timestamps and the bulk CSV
// exports' US date format.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// parseTimestamp parses a record timestamp. Bulk exports append a time-of-day
// token after the date ("12/24/2025 10:31:00 AM"); only the first token
// matters for recency.
func parseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
