package budget_test

import (
	"math"
	"testing"

	"fabula/internal/budget"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEstimateCostText(t *testing.T) {
	op := budget.Operation{
		Kind:        budget.KindText,
		Model:       "google/gemini-3-flash-preview",
		InputUnits:  2000,
		OutputUnits: 1000,
		Complexity:  budget.ComplexityLow,
	}
	// 2k input at 0.0003/k + 1k output at 0.0012/k
	if got := budget.EstimateCost(op); !almostEqual(got, 0.0018) {
		t.Fatalf("estimate = %v, want 0.0018", got)
	}

	op.Complexity = budget.ComplexityHigh
	if got := budget.EstimateCost(op); !almostEqual(got, 0.0036) {
		t.Fatalf("high complexity estimate = %v, want doubled", got)
	}
}

func TestEstimateCostPerKind(t *testing.T) {
	tests := []struct {
		name string
		op   budget.Operation
		want float64
	}{
		{
			"image flat rate",
			budget.Operation{Kind: budget.KindImage, Model: "sdxl-turbo", OutputUnits: 3},
			0.12,
		},
		{
			"image defaults to one",
			budget.Operation{Kind: budget.KindImage, Model: "sdxl-turbo"},
			0.04,
		},
		{
			"video per second",
			budget.Operation{Kind: budget.KindVideo, Model: "svd-xt", OutputUnits: 10},
			1.2,
		},
		{
			"speech per character",
			budget.Operation{Kind: budget.KindSpeech, Model: "tts-multilingual", InputUnits: 1000},
			0.016,
		},
		{
			"music per second",
			budget.Operation{Kind: budget.KindMusic, Model: "musicgen-medium", OutputUnits: 30},
			0.06,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := budget.EstimateCost(tt.op); !almostEqual(got, tt.want) {
				t.Fatalf("estimate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateCostUnknownModelIsZero(t *testing.T) {
	for _, kind := range []budget.Kind{budget.KindText, budget.KindImage, budget.KindVideo, budget.KindSpeech, budget.KindMusic} {
		op := budget.Operation{Kind: kind, Model: "does-not-exist", InputUnits: 100, OutputUnits: 100}
		if got := budget.EstimateCost(op); got != 0 {
			t.Fatalf("kind %s: unknown model should price to zero, got %v", kind, got)
		}
	}
}

func TestComplexityMultiplier(t *testing.T) {
	if budget.ComplexityLow.Multiplier() != 1.0 {
		t.Fatal("low must be 1.0")
	}
	if budget.ComplexityMedium.Multiplier() != 1.5 {
		t.Fatal("medium must be 1.5")
	}
	if budget.ComplexityHigh.Multiplier() != 2.0 {
		t.Fatal("high must be 2.0")
	}
	if budget.Complexity("weird").Multiplier() != 1.0 {
		t.Fatal("unknown tiers price as low")
	}
}
