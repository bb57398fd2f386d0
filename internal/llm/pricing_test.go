package llm

import (
	"math"
	"testing"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model     string
		wantInput float64
		wantNil   bool
	}{
		{model: "gpt-4o-mini", wantInput: 0.15},
		{model: "gpt-4o-mini-2024-07-18", wantInput: 0.15},
		{model: "claude-haiku-4-5-20251001", wantInput: 1},
		{model: "grok-3-mini", wantInput: 0.3},
		{model: "mock", wantNil: true},
	}
	for _, tt := range tests {
		c := LookupCost(tt.model)
		if tt.wantNil {
			if c != nil {
				t.Errorf("LookupCost(%q) = %+v, want nil", tt.model, c)
			}
			continue
		}
		if c == nil {
			t.Fatalf("LookupCost(%q) = nil", tt.model)
		}
		if c.InputPerMTok != tt.wantInput {
			t.Errorf("LookupCost(%q).InputPerMTok = %v, want %v", tt.model, c.InputPerMTok, tt.wantInput)
		}
	}
}

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 0.15, OutputPerMTok: 0.6}
	got := c.Cost(1_000_000, 500_000)
	if math.Abs(got-0.45) > 1e-9 {
		t.Fatalf("cost = %v, want 0.45", got)
	}
}
