package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Candle represents one closed OHLC bar received from a feed.
// Prices are float64 because every supported feed delivers them as JSON
// numbers; no arithmetic beyond comparisons is done on them.
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Validate checks that all four price fields are finite numbers.
// Cross-price sanity (high >= low etc.) is deliberately not enforced —
// feeds disagree on edge cases and detectors only compare values.
func (c Candle) Validate() error {
	for _, p := range [...]struct {
		name string
		v    float64
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
	} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) {
			return fmt.Errorf("candle: %s is not finite", p.name)
		}
	}
	return nil
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
