package pattern

import (
	"fmt"

	"trading-alertsv1/internal/model"
)

// detectFVG finds a three-candle fair value gap: the current candle's
// range does not overlap the candle two bars back, leaving an untraded
// imbalance between them. Bullish and bearish gaps are mutually
// exclusive by construction, and bullish is checked first.
func detectFVG(c []model.Candle) *Hit {
	if len(c) < 3 {
		return nil
	}
	c0 := c[len(c)-3]
	c2 := c[len(c)-1]

	// bullish FVG: low of current > high of 2 candles ago
	if c2.Low > c0.High {
		return &Hit{
			Pattern:   model.PatternFVG,
			Direction: model.Long,
			Detail:    fmt.Sprintf("Bullish FVG: gap between %v and %v", c0.High, c2.Low),
		}
	}

	// bearish FVG: high of current < low of 2 candles ago
	if c2.High < c0.Low {
		return &Hit{
			Pattern:   model.PatternFVG,
			Direction: model.Short,
			Detail:    fmt.Sprintf("Bearish FVG: gap between %v and %v", c2.High, c0.Low),
		}
	}

	return nil
}
