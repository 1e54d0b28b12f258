package pattern

import "trading-alertsv1/internal/model"

// detectBreaker finds a failed liquidity sweep: the previous candle
// swept an extreme and rejected, but the current candle closed back
// through the sweep candle's extreme, flipping the level into a breaker.
func detectBreaker(c []model.Candle) *Hit {
	if len(c) < 5 {
		return nil
	}
	last := c[len(c)-1]
	sweep := c[len(c)-2]
	ref := c[len(c)-3]

	// prior candle swept above and rejected, current closes above its high
	if sweep.High > ref.High && sweep.Close < ref.High && sweep.Close < sweep.Open &&
		last.Close > sweep.High {
		return &Hit{
			Pattern:   model.PatternBreaker,
			Direction: model.Long,
			Detail:    "Failed sweep above prior high reclaimed as bullish breaker.",
		}
	}

	// prior candle swept below and rejected, current closes below its low
	if sweep.Low < ref.Low && sweep.Close > ref.Low && sweep.Close > sweep.Open &&
		last.Close < sweep.Low {
		return &Hit{
			Pattern:   model.PatternBreaker,
			Direction: model.Short,
			Detail:    "Failed sweep below prior low reclaimed as bearish breaker.",
		}
	}

	return nil
}
