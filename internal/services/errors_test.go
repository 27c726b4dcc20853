package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"episodedb/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "audio_extraction", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"audio_extraction", "ffmpeg", "failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", services.Wrap(services.ErrTimeout, "inspect", "", "", nil), true},
		{"external tool", services.Wrap(services.ErrExternalTool, "inspect", "", "", nil), true},
		{"transient", fmt.Errorf("outer: %w", services.ErrTransient), true},
		{"validation", services.Wrap(services.ErrValidation, "inspect", "", "", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "import", "", "", nil), false},
		{"configuration", services.ErrConfiguration, false},
		{"canceled", fmt.Errorf("stop: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("plain"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if got := services.Classify(services.Wrap(services.ErrNotFound, "", "", "x", nil)); got != "not_found" {
		t.Fatalf("unexpected class %q", got)
	}
	if got := services.Classify(errors.New("x")); got != "transient" {
		t.Fatalf("unexpected class %q", got)
	}
	if got := services.Classify(nil); got != "" {
		t.Fatalf("expected empty class, got %q", got)
	}
}
