package bridge

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseOptions(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	cases := []struct {
		name string
		raw  map[string]any
		temp *float64
		max  int
	}{
		{"nil", nil, nil, 0},
		{"both", map[string]any{"temperature": 0.7, "maxTokens": 64.0}, f(0.7), 64},
		{"snake case", map[string]any{"max_tokens": 10}, nil, 10},
		{"camel wins", map[string]any{"maxTokens": 5, "max_tokens": 9}, nil, 5},
		{"json number", map[string]any{"temperature": json.Number("1.5")}, f(1.5), 0},
		{"bounds inclusive", map[string]any{"temperature": 2}, f(2), 0},
		{"temperature too high", map[string]any{"temperature": 2.5}, nil, 0},
		{"temperature negative", map[string]any{"temperature": -0.1}, nil, 0},
		{"temperature string", map[string]any{"temperature": "0.5"}, nil, 0},
		{"temperature NaN", map[string]any{"temperature": math.NaN()}, nil, 0},
		{"maxTokens zero", map[string]any{"maxTokens": 0}, nil, 0},
		{"maxTokens fractional", map[string]any{"maxTokens": 3.5}, nil, 0},
		{"maxTokens bool", map[string]any{"maxTokens": true}, nil, 0},
		{"invalid camel falls back", map[string]any{"maxTokens": "x", "max_tokens": 7}, nil, 7},
		{"unknown keys", map[string]any{"topK": 40, "stop": []string{"x"}}, nil, 0},
	}
	for _, tc := range cases {
		got := ParseOptions(tc.raw)
		if (got.Temperature == nil) != (tc.temp == nil) || (got.Temperature != nil && *got.Temperature != *tc.temp) {
			t.Fatalf("%s: temperature=%v want %v", tc.name, got.Temperature, tc.temp)
		}
		if got.MaxTokens != tc.max {
			t.Fatalf("%s: maxTokens=%d want %d", tc.name, got.MaxTokens, tc.max)
		}
	}
}
