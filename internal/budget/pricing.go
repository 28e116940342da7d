package budget

import "strings"

// Kind identifies the class of generation operation being priced.
type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
	KindSpeech Kind = "speech"
	KindMusic  Kind = "music"
)

// Complexity scales an estimate for harder variants of an operation.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Multiplier returns the pricing multiplier for the complexity tier.
// Unknown tiers price as low.
func (c Complexity) Multiplier() float64 {
	switch c {
	case ComplexityMedium:
		return 1.5
	case ComplexityHigh:
		return 2.0
	default:
		return 1.0
	}
}

// Operation describes one planned or completed service call for pricing.
// Unit semantics depend on Kind: text uses input/output tokens, image uses
// output image count, video and music use output duration seconds, speech
// uses input character count.
type Operation struct {
	Kind        Kind
	Model       string
	InputUnits  float64
	OutputUnits float64
	Complexity  Complexity
}

type textRate struct {
	inputPerThousand  float64
	outputPerThousand float64
}

// Per-model rates in USD. Unknown models estimate to zero rather than
// failing, so a new model never blocks planning.
var (
	textRates = map[string]textRate{
		"google/gemini-3-flash-preview": {0.0003, 0.0012},
		"google/gemini-3-pro":           {0.00125, 0.005},
		"anthropic/claude-sonnet":       {0.003, 0.015},
		"openai/gpt-4o-mini":            {0.00015, 0.0006},
	}
	imageRates = map[string]float64{
		"sdxl-turbo":   0.04,
		"sdxl":         0.08,
		"flux-schnell": 0.03,
	}
	videoRatesPerSecond = map[string]float64{
		"svd-xt":     0.12,
		"runway-gen": 0.25,
	}
	speechRatesPerCharacter = map[string]float64{
		"tts-multilingual": 0.000016,
		"tts-hd":           0.00003,
	}
	musicRatesPerSecond = map[string]float64{
		"musicgen-medium": 0.002,
		"musicgen-large":  0.004,
	}
)

// EstimateCost deterministically prices an operation. Unknown models yield
// zero; the caller decides whether zero-cost planning is acceptable.
func EstimateCost(op Operation) float64 {
	model := strings.TrimSpace(op.Model)
	multiplier := op.Complexity.Multiplier()

	switch op.Kind {
	case KindText:
		rate, ok := textRates[model]
		if !ok {
			return 0
		}
		return (op.InputUnits/1000*rate.inputPerThousand + op.OutputUnits/1000*rate.outputPerThousand) * multiplier
	case KindImage:
		rate, ok := imageRates[model]
		if !ok {
			return 0
		}
		count := op.OutputUnits
		if count <= 0 {
			count = 1
		}
		return rate * count * multiplier
	case KindVideo:
		rate, ok := videoRatesPerSecond[model]
		if !ok {
			return 0
		}
		return rate * op.OutputUnits * multiplier
	case KindSpeech:
		rate, ok := speechRatesPerCharacter[model]
		if !ok {
			return 0
		}
		return rate * op.InputUnits * multiplier
	case KindMusic:
		rate, ok := musicRatesPerSecond[model]
		if !ok {
			return 0
		}
		return rate * op.OutputUnits * multiplier
	}
	return 0
}

// TokenEquivalent converts an operation's units into a rough token count for
// usage reporting. Only text and speech operations contribute.
func TokenEquivalent(kind Kind, inputUnits, outputUnits float64) float64 {
	switch kind {
	case KindText:
		return inputUnits + outputUnits
	case KindSpeech:
		// Characters approximate to tokens at 4:1.
		return inputUnits / 4
	default:
		return 0
	}
}
