package bridge

import (
	"encoding/json"
	"math"

	"modelbridge/internal/llm"
)

// Temperature bounds accepted by ParseOptions.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Options are the recognized generation parameters.
type Options struct {
	// Temperature in [MinTemperature, MaxTemperature]; nil means model default.
	Temperature *float64
	// MaxTokens caps the response length; 0 means model default.
	MaxTokens int
}

// ParseOptions extracts the recognized fields from a loosely-typed option
// bag. Unknown keys, values of the wrong type and out-of-range values are
// ignored, never rejected.
//
// Recognized keys: "temperature" (number in [0, 2]) and "maxTokens" or
// "max_tokens" (positive integer).
func ParseOptions(raw map[string]any) Options {
	var o Options
	if len(raw) == 0 {
		return o
	}
	if v, ok := number(raw["temperature"]); ok && v >= MinTemperature && v <= MaxTemperature {
		o.Temperature = &v
	}
	for _, key := range []string{"maxTokens", "max_tokens"} {
		if v, ok := number(raw[key]); ok && v >= 1 && v == math.Trunc(v) && v <= math.MaxInt32 {
			o.MaxTokens = int(v)
			break
		}
	}
	return o
}

func (o Options) llm() llm.Options {
	return llm.Options{Temperature: o.Temperature, MaxTokens: o.MaxTokens}
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
