package export

import (
	"testing"
	"time"
)

func TestEpochToISO(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, ""},
		{1700000000, "2023-11-14T22:13:20.000000+00:00"},
		{1700000000.25, "2023-11-14T22:13:20.250000+00:00"},
		{1700000000.9999996, "2023-11-14T22:13:21.000000+00:00"},
	}
	for _, tt := range tests {
		if got := EpochToISO(tt.in); got != tt.want {
			t.Errorf("EpochToISO(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeISO(t *testing.T) {
	got, ok := NormalizeISO("2024-03-01T10:00:02.5-05:00")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if got != "2024-03-01T15:00:02.500000+00:00" {
		t.Errorf("unexpected normalization %q", got)
	}

	layouts := []struct {
		in   string
		want string
	}{
		{"2024-01-01T10:00:00", "2024-01-01T10:00:00.000000+00:00"},
		{"2024-01-01T10:00:00.123456", "2024-01-01T10:00:00.123456+00:00"},
		{"2024-01-01 10:00:05+00:00", "2024-01-01T10:00:05.000000+00:00"},
		{"2024-01-01 12:00:05.5+02:00", "2024-01-01T10:00:05.500000+00:00"},
		{"2024-01-01T10:00:00+0100", "2024-01-01T09:00:00.000000+00:00"},
		{"2024-01-01 10:00:05", "2024-01-01T10:00:05.000000+00:00"},
		{"2024-03-01", "2024-03-01T00:00:00.000000+00:00"},
	}
	for _, tt := range layouts {
		got, ok := NormalizeISO(tt.in)
		if !ok || got != tt.want {
			t.Errorf("NormalizeISO(%q) = %q, %v, want %q", tt.in, got, ok, tt.want)
		}
	}

	for _, bad := range []string{"", "  ", "noon", "2024-13-01T00:00:00", "01/02/2024"} {
		if _, ok := NormalizeISO(bad); ok {
			t.Errorf("NormalizeISO(%q) should fail", bad)
		}
	}
}

func TestCanonicalTimestampsSortChronologically(t *testing.T) {
	base := time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)
	earlier := FormatTime(base)
	later := FormatTime(base.Add(1500 * time.Millisecond))
	if len(earlier) != len(later) {
		t.Fatalf("canonical timestamps must be fixed width: %q vs %q", earlier, later)
	}
	if !(earlier < later) {
		t.Errorf("expected %q < %q", earlier, later)
	}
}

func TestClassifyRoles(t *testing.T) {
	if r, ok := ClassifyClaudeSender("human"); !ok || r != RoleUser {
		t.Errorf("human -> %s, %v", r, ok)
	}
	if r, ok := ClassifyClaudeSender("assistant"); !ok || r != RoleAssistant {
		t.Errorf("assistant -> %s, %v", r, ok)
	}
	for _, s := range []string{"tool", "system", "user", ""} {
		if _, ok := ClassifyClaudeSender(s); ok {
			t.Errorf("sender %q should be rejected", s)
		}
	}
	for _, s := range []string{"system", "tool", "human"} {
		if _, ok := ClassifyAuthorRole(s); ok {
			t.Errorf("author role %q should be rejected", s)
		}
	}
}
