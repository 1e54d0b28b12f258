package pattern

import (
	"fmt"

	"trading-alertsv1/internal/model"
)

// fvgRetestLookback bounds how far back the retest scan walks; gaps older
// than this are considered stale.
const fvgRetestLookback = 30

// detectFVGRetest finds the current candle trading back into the most
// recent fair value gap and closing on the respecting side of it: a
// bullish gap retested from above with a close back over the gap top, or
// the bearish mirror.
func detectFVGRetest(c []model.Candle) *Hit {
	if len(c) < 4 {
		return nil
	}
	last := c[len(c)-1]

	lo := len(c) - 1 - fvgRetestLookback
	if lo < 2 {
		lo = 2
	}

	// Walk backwards so the most recent gap wins.
	for i := len(c) - 2; i >= lo; i-- {
		a, b := c[i-2], c[i]

		// bullish gap between a.High and b.Low
		if b.Low > a.High {
			if last.Low <= b.Low && last.Low >= a.High && last.Close > b.Low {
				return &Hit{
					Pattern:   model.PatternFVGRetest,
					Direction: model.Long,
					Detail:    fmt.Sprintf("Retest of bullish FVG between %v and %v held.", a.High, b.Low),
				}
			}
			return nil
		}

		// bearish gap between b.High and a.Low
		if b.High < a.Low {
			if last.High >= b.High && last.High <= a.Low && last.Close < b.High {
				return &Hit{
					Pattern:   model.PatternFVGRetest,
					Direction: model.Short,
					Detail:    fmt.Sprintf("Retest of bearish FVG between %v and %v held.", b.High, a.Low),
				}
			}
			return nil
		}
	}

	return nil
}
