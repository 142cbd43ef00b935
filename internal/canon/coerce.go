package canon

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// coerceNumber normalizes an engagement counter or sales figure from
// whatever the exporter produced. Non-numeric input (including the string
// "NaN" and the "no-data" sales sentinel), NaN, and negative values all
// become 0. These are tolerated data-quality defects, never errors.
func coerceNumber(raw any) float64 {
	var n float64
	switch val := raw.(type) {
	case float64:
		n = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		n = parsed
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		// null, objects, arrays
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return n
}

// normalizeHandle trims, strips one leading @, and lower-cases a social
// handle. Empty after normalization means absent.
func normalizeHandle(handle string) string {
	h := strings.TrimSpace(handle)
	h = strings.TrimPrefix(h, "@")
	return strings.ToLower(h)
}

// normalizeLower trims and lower-cases.
func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// timestampLayouts are tried in order when parsing joined_at. Exporters
// emit RFC 3339 for the most part, with bare dates from older versions.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
