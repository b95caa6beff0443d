package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromUnwrapsWrappedAPIError(t *testing.T) {
	base := New(http.StatusNotFound, "snapshot_not_found", errors.New("missing"))
	got := From(fmt.Errorf("handler: %w", base))
	if got != base {
		t.Fatalf("From: want original api error, got %#v", got)
	}
}

func TestFromDefaultsToInternal(t *testing.T) {
	got := From(errors.New("boom"))
	if got.Status != http.StatusInternalServerError || got.Code != "internal" {
		t.Fatalf("From: want 500/internal got %d/%s", got.Status, got.Code)
	}
	if From(nil) != nil {
		t.Fatalf("From(nil): want nil")
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	if msg := New(http.StatusBadRequest, "", nil).Error(); msg != "api error (400)" {
		t.Fatalf("status fallback: got %q", msg)
	}
	if msg := New(0, "snapshot_locked", nil).Error(); msg != "snapshot_locked" {
		t.Fatalf("code fallback: got %q", msg)
	}
}
