package pattern

import "trading-alertsv1/internal/model"

// detectLiquiditySweep finds a wick through the previous candle's extreme
// that closed back inside as a reversal candle: buy-side liquidity taken
// above the prior high on a down close, or sell-side below the prior low
// on an up close.
func detectLiquiditySweep(c []model.Candle) *Hit {
	if len(c) < 4 {
		return nil
	}
	last := c[len(c)-1]
	prev := c[len(c)-2]

	// sweep above previous high then close back inside, red candle
	if last.High > prev.High && last.Close < prev.High && last.Close < last.Open {
		return &Hit{
			Pattern:   model.PatternLiquidity,
			Direction: model.Short,
			Detail:    "Swept buy-side liquidity above previous high and rejected.",
		}
	}

	// sweep below previous low then close back inside, green candle
	if last.Low < prev.Low && last.Close > prev.Low && last.Close > last.Open {
		return &Hit{
			Pattern:   model.PatternLiquidity,
			Direction: model.Long,
			Detail:    "Swept sell-side liquidity below previous low and rejected.",
		}
	}

	return nil
}
