package format

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
		{360000, "100:00:00"},
		{-5, "00:00:00"},
	}
	for _, tc := range cases {
		if got := Duration(tc.seconds); got != tc.want {
			t.Fatalf("Duration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestPublishedDate(t *testing.T) {
	date := time.Date(2021, time.January, 8, 16, 0, 0, 0, time.UTC)
	if got := PublishedDate(date); got != "8 jan 21" {
		t.Fatalf("unexpected date %q", got)
	}

	date = time.Date(2009, time.December, 25, 0, 0, 0, 0, time.UTC)
	if got := PublishedDate(date); got != "25 dez 09" {
		t.Fatalf("unexpected date %q", got)
	}
}

func TestParseISODate(t *testing.T) {
	for _, value := range []string{
		"2021-01-08 16:00:00",
		"2021-01-08T16:00:00",
		"2021-01-08T16:00:00Z",
		"2021-01-08T16:00:00-03:00",
		"2021-01-08",
	} {
		parsed, err := ParseISODate(value)
		if err != nil {
			t.Fatalf("ParseISODate(%q): %v", value, err)
		}
		if parsed.Year() != 2021 || parsed.Month() != time.January || parsed.Day() != 8 {
			t.Fatalf("ParseISODate(%q) = %s", value, parsed)
		}
	}

	if _, err := ParseISODate("yesterday"); err == nil {
		t.Fatalf("expected error for non-ISO input")
	}
}
