// Package pattern implements the detector pipeline that inspects a
// session's candle window after every close. Each detector is a pure
// function over the trailing window and returns at most one hit; running
// the pipeline twice on an unchanged window yields the same result set.
package pattern

import "trading-alertsv1/internal/model"

// Hit is a single detector match before it is wrapped into an Alert.
type Hit struct {
	Pattern   string
	Direction model.Direction
	Detail    string
}

// detector inspects the window (oldest-first) and returns a hit or nil.
type detector func(candles []model.Candle) *Hit

// pipeline lists all detectors in their declared evaluation order. The
// order defines alert emission order, not priority.
var pipeline = []struct {
	enabled func(cfg model.PatternConfig) bool
	detect  detector
}{
	{func(c model.PatternConfig) bool { return c.FVG }, detectFVG},
	{func(c model.PatternConfig) bool { return c.MSS }, detectMSS},
	{func(c model.PatternConfig) bool { return c.Liquidity }, detectLiquiditySweep},
	{func(c model.PatternConfig) bool { return c.OrderBlk }, detectOrderBlock},
	{func(c model.PatternConfig) bool { return c.Breaker }, detectBreaker},
	{func(c model.PatternConfig) bool { return c.Killzone }, detectKillzone},
	{func(c model.PatternConfig) bool { return c.FVGRetest }, detectFVGRetest},
}

// Run evaluates every enabled detector once against the window and
// collects all non-nil hits in pipeline order.
func Run(candles []model.Candle, cfg model.PatternConfig) []Hit {
	var hits []Hit
	for _, stage := range pipeline {
		if !stage.enabled(cfg) {
			continue
		}
		if hit := stage.detect(candles); hit != nil {
			hits = append(hits, *hit)
		}
	}
	return hits
}
