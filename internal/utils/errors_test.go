package utils

import (
	"errors"
	"testing"
)

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := NewAppError("services.Summary", "lookup failed", base)
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to match base")
	}
	if got := err.Error(); got != "services.Summary: lookup failed: boom" {
		t.Fatalf("unexpected message %q", got)
	}

	plain := NewAppError("op", "msg", nil)
	if got := plain.Error(); got != "op: msg" {
		t.Fatalf("unexpected message %q", got)
	}
}
