package storage

import (
	"testing"
	"time"
)

func TestEntryDuration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &Entry{StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}
	if got := e.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want %v", got, 1500*time.Millisecond)
	}
}

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, 20},
		{-5, 20},
		{1, 1},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		if got := (ListOptions{Limit: tt.limit}).EffectiveLimit(); got != tt.want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}
