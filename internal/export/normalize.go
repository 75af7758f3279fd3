package export

import (
	"math"
	"strings"
	"time"
)

// isoLayout is fixed width: microseconds are always printed and the offset is
// always +00:00. Lexicographic order of two rendered timestamps therefore
// equals their chronological order, which the Claude adapter relies on.
const isoLayout = "2006-01-02T15:04:05.000000-07:00"

// EpochToISO renders epoch seconds as a UTC ISO-8601 string. Zero yields "".
func EpochToISO(ts float64) string {
	if ts == 0 || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return ""
	}
	sec := math.Floor(ts)
	usec := math.Round((ts - sec) * 1e6)
	if usec >= 1e6 {
		sec++
		usec = 0
	}
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond)).UTC().Format(isoLayout)
}

// isoInputLayouts are the ISO-8601 forms found in exports. Layouts without a
// zone are read as UTC. time.Parse accepts fractional seconds after any
// seconds field.
var isoInputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormalizeISO re-renders an ISO-8601 timestamp in the fixed-width UTC form.
// It reports false when no known layout parses s.
func NormalizeISO(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range isoInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Microsecond).Format(isoLayout), true
		}
	}
	return "", false
}

// FormatTime renders t in the canonical timestamp form.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(isoLayout)
}

// ClassifyAuthorRole maps a ChatGPT author role. System and tool authors are
// rejected.
func ClassifyAuthorRole(role string) (Role, bool) {
	switch role {
	case "user":
		return RoleUser, true
	case "assistant":
		return RoleAssistant, true
	}
	return "", false
}

// ClassifyClaudeSender maps a Claude sender. Anything other than human or
// assistant (tool calls, system annotations) is rejected so it can never be
// mistaken for an assistant turn.
func ClassifyClaudeSender(sender string) (Role, bool) {
	switch sender {
	case "human":
		return RoleUser, true
	case "assistant":
		return RoleAssistant, true
	}
	return "", false
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
