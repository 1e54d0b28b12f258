package pattern

import (
	"fmt"

	"trading-alertsv1/internal/model"
)

// detectOrderBlock finds the classic two-candle order block: an opposing
// candle immediately followed by a displacement candle that closes
// through its extreme. The opposing candle's range is the block.
func detectOrderBlock(c []model.Candle) *Hit {
	if len(c) < 3 {
		return nil
	}
	block := c[len(c)-2]
	disp := c[len(c)-1]

	// bullish: down candle engulfed by an up displacement through its high
	if block.Close < block.Open && disp.Close > disp.Open && disp.Close > block.High {
		return &Hit{
			Pattern:   model.PatternOrderBlk,
			Direction: model.Long,
			Detail:    fmt.Sprintf("Bullish order block between %v and %v", block.Low, block.High),
		}
	}

	// bearish: up candle engulfed by a down displacement through its low
	if block.Close > block.Open && disp.Close < disp.Open && disp.Close < block.Low {
		return &Hit{
			Pattern:   model.PatternOrderBlk,
			Direction: model.Short,
			Detail:    fmt.Sprintf("Bearish order block between %v and %v", block.Low, block.High),
		}
	}

	return nil
}
