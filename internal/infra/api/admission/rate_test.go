package admission

import (
	"context"
	"testing"
	"time"
)

func TestRateAdmitter(t *testing.T) {
	a := NewRateAdmitter(1, 1)

	if err := a.Acquire(context.Background()); err != nil {
		t.Fatalf("First acquire should be immediate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Acquire(ctx); err == nil {
		t.Error("Expected second acquire to fail within deadline at 1/s")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		strategy Strategy
		wantErr  bool
	}{
		{"", false},
		{StrategyBucket, false},
		{StrategyRate, false},
		{"leaky", true},
	}
	for _, tt := range tests {
		cfg := DefaultConfig
		cfg.Strategy = tt.strategy
		a, err := New(cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.strategy, err, tt.wantErr)
		}
		if !tt.wantErr && a == nil {
			t.Errorf("New(%q) returned nil admitter", tt.strategy)
		}
	}
}
