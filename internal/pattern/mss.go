package pattern

import "trading-alertsv1/internal/model"

// detectMSS finds a crude market structure shift over the last five
// candles: the previous candle printed the extreme of the lookback and
// the current candle broke the opposite extreme.
//
// The pivot comparisons use exact float equality on purpose: the
// previous candle qualifies only when it IS the lookback extreme, which
// is an identity check, not a proximity check. Note the lookback window
// includes the current candle.
func detectMSS(c []model.Candle) *Hit {
	if len(c) < 5 {
		return nil
	}

	recent := c[len(c)-5:]
	maxHigh := recent[0].High
	minLow := recent[0].Low
	for _, x := range recent[1:] {
		if x.High > maxHigh {
			maxHigh = x.High
		}
		if x.Low < minLow {
			minLow = x.Low
		}
	}

	last := c[len(c)-1]
	prev := c[len(c)-2]

	// MSS down: previous made the higher high, last breaks recent lows.
	if prev.High == maxHigh && last.Low < minLow {
		return &Hit{
			Pattern:   model.PatternMSS,
			Direction: model.Short,
			Detail:    "Market structure shift down after recent high.",
		}
	}

	// MSS up: previous made the lower low, last breaks recent highs.
	if prev.Low == minLow && last.High > maxHigh {
		return &Hit{
			Pattern:   model.PatternMSS,
			Direction: model.Long,
			Detail:    "Market structure shift up after recent low.",
		}
	}

	return nil
}
