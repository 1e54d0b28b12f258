package model

import (
	"math"
	"strings"
	"testing"
)

func TestCandleValidate(t *testing.T) {
	good := Candle{Open: 1, High: 2, Low: 0.5, Close: 1.5}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid candle rejected: %v", err)
	}

	tests := []struct {
		name   string
		candle Candle
		field  string
	}{
		{"nan open", Candle{Open: math.NaN(), High: 2, Low: 1, Close: 1.5}, "open"},
		{"inf high", Candle{Open: 1, High: math.Inf(1), Low: 1, Close: 1.5}, "high"},
		{"neg inf low", Candle{Open: 1, High: 2, Low: math.Inf(-1), Close: 1.5}, "low"},
		{"nan close", Candle{Open: 1, High: 2, Low: 1, Close: math.NaN()}, "close"},
	}
	for _, tt := range tests {
		err := tt.candle.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.field) {
			t.Errorf("%s: error should name %q, got %v", tt.name, tt.field, err)
		}
	}

	// High below low is accepted on purpose.
	odd := Candle{Open: 1, High: 0.5, Low: 2, Close: 1}
	if err := odd.Validate(); err != nil {
		t.Fatalf("cross-price sanity must not be enforced: %v", err)
	}
}

func TestDefaultPatternConfig(t *testing.T) {
	cfg := DefaultPatternConfig()
	if !cfg.FVG || !cfg.MSS || !cfg.Liquidity {
		t.Fatalf("core detectors must default on: %+v", cfg)
	}
	if cfg.OrderBlk || cfg.Breaker || cfg.Killzone || cfg.FVGRetest {
		t.Fatalf("extended detectors must default off: %+v", cfg)
	}
}
