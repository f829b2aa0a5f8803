package inference

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nevscope/nevscope/pkg/models"
)

func usageOf(prompt, completion int64) models.Usage {
	return models.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

func TestIsTransientStatusCodes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", 429, true},
		{"request timeout", 408, true},
		{"server error", 500, true},
		{"bad gateway", 502, true},
		{"unauthorized", 401, false},
		{"bad request", 400, false},
		{"forbidden", 403, false},
		{"not found", 404, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapAPIError("test", tt.status, errors.New("backend error"))
			if got := IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient(status %d) = %v, want %v", tt.status, got, tt.transient)
			}
		})
	}
}

func TestIsTransientNoStatus(t *testing.T) {
	err := wrapAPIError("test", 0, errors.New("connection reset"))
	if !IsTransient(err) {
		t.Error("expected network-level failure without status to be transient")
	}
}

func TestIsTransientContextErrors(t *testing.T) {
	if !IsTransient(context.DeadlineExceeded) {
		t.Error("expected deadline expiry to be transient")
	}
	if IsTransient(context.Canceled) {
		t.Error("expected cancellation to be permanent")
	}
}

func TestWrapAPIErrorPassesThroughContextErrors(t *testing.T) {
	err := wrapAPIError("test", 0, context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled to pass through, got %v", err)
	}
	var infErr *Error
	if errors.As(err, &infErr) {
		t.Error("context errors should not be wrapped")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := wrapAPIError("test", 503, fmt.Errorf("call failed: %w", cause))
	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to unwrap to its cause")
	}
}

func TestTokenTrackerAccumulates(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add("macro", usageOf(100, 50))
	tracker.Add("macro", usageOf(30, 20))
	tracker.Add("finance", usageOf(10, 5))

	total := tracker.Total()
	if total.PromptTokens != 140 || total.CompletionTokens != 75 {
		t.Errorf("total = %+v, want prompt 140 completion 75", total)
	}
	macro := tracker.Role("macro")
	if macro.PromptTokens != 130 {
		t.Errorf("macro prompt tokens = %d, want 130", macro.PromptTokens)
	}
	if tracker.Calls() != 3 {
		t.Errorf("calls = %d, want 3", tracker.Calls())
	}
}
