// CLAUDE:SUMMARY Output helpers shared by all renderers: truncation at the global character limit, dates, byte sizes, JSON echo.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// CharacterLimit is the ceiling applied to every rendered tool output.
const CharacterLimit = 50000

// InvalidDate is rendered for missing or unparseable timestamps.
const InvalidDate = "Invalid Date"

// TruncateText returns text unchanged when it fits in limit characters,
// otherwise its first limit characters followed by a visible marker.
func TruncateText(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return prefix(text, limit) + fmt.Sprintf("\n\n... [Response truncated at %d characters]", limit)
}

// Truncate applies the global CharacterLimit.
func Truncate(text string) string {
	return TruncateText(text, CharacterLimit)
}

// prefix returns the first n characters of s.
func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// dateLayouts are tried in order. CKAN emits naive ISO timestamps with
// microseconds; other portals add offsets or send plain dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDate renders the calendar date of a timestamp as YYYY-MM-DD, keeping
// the date component as written in the source (no zone conversion).
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return InvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return InvalidDate
}

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders a byte count in 1024-based units with up to two
// decimals, trailing zeros stripped. Zero or negative counts render "0 B".
func FormatBytes(b float64) string {
	if b <= 0 || math.IsNaN(b) {
		return "0 B"
	}
	i := 0
	for b >= 1024 && i < len(byteUnits)-1 {
		b /= 1024
		i++
	}
	v := math.Round(b*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[i]
}

// JSON pretty-prints a raw CKAN result with two-space indentation and
// applies the global truncation.
func JSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return Truncate(string(raw))
	}
	return Truncate(buf.String())
}

// cut returns the first n characters of s and whether anything was dropped.
func cut(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	return prefix(s, n), true
}
