package cache

import (
	"strings"
	"testing"
	"time"
)

func TestParseTTL(t *testing.T) {
	cases := map[string]time.Duration{
		"7d":    7 * 24 * time.Hour,
		"24h":   24 * time.Hour,
		"30m":   30 * time.Minute,
		"3600s": time.Hour,
		"3600":  time.Hour,
		" 2D ":  48 * time.Hour,
		"1h30m": 90 * time.Minute,
		"0":     0,
	}
	for input, want := range cases {
		got, err := ParseTTL(input)
		if err != nil {
			t.Fatalf("ParseTTL(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseTTL(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestParseTTLRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-5s", "7w"} {
		if _, err := ParseTTL(input); err == nil {
			t.Fatalf("ParseTTL(%q) should fail", input)
		}
	}
}

func TestParseTTLRejectsOverflow(t *testing.T) {
	for _, input := range []string{"9999999999999999s", "9999999999999999", "200000000d", "99999999999999h"} {
		_, err := ParseTTL(input)
		if err == nil {
			t.Fatalf("ParseTTL(%q) should reject overflow", input)
		}
		if !strings.Contains(err.Error(), "too large") {
			t.Fatalf("ParseTTL(%q) error should mention size, got %v", input, err)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		7 * 24 * time.Hour: "7d",
		12 * time.Hour:     "12h",
		30 * time.Minute:   "30m",
		45 * time.Second:   "45s",
		0:                  "0s",
	}
	for input, want := range cases {
		if got := FormatDuration(input); got != want {
			t.Fatalf("FormatDuration(%s) = %s, want %s", input, got, want)
		}
	}
}
