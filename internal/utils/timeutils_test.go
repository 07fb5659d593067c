package utils

import (
	"math"
	"testing"
	"time"
)

func TestParseRFC3339(t *testing.T) {
	got, err := ParseRFC3339("2024-05-01T10:00:00.250Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 250*int(time.Millisecond), time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := ParseRFC3339(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
	if _, err := ParseRFC3339("yesterday"); err == nil {
		t.Fatalf("expected error for invalid value")
	}
}

func TestFromEpochMillis(t *testing.T) {
	got, ok := FromEpochMillis(1714557600000)
	if !ok {
		t.Fatalf("expected conversion to succeed")
	}
	if !got.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
	if _, ok := FromEpochMillis(math.NaN()); ok {
		t.Fatalf("expected NaN to be rejected")
	}
}
