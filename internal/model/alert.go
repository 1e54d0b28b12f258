package model

// Direction is the trade direction suggested by a detected pattern.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Pattern names as emitted in alerts and wire payloads.
const (
	PatternFVG       = "FVG"
	PatternMSS       = "MSS"
	PatternLiquidity = "liquidity_sweep"
	PatternOrderBlk  = "order_block"
	PatternBreaker   = "breaker"
	PatternKillzone  = "killzone"
	PatternFVGRetest = "fvg_retest"
)

// Alert is a single pattern hit on a session's candle window.
// It is consumed immediately by enrichment + fan-out and never persisted
// as part of the pipeline (the optional journal records delivered copies).
type Alert struct {
	Pattern    string    `json:"pattern"`
	Direction  Direction `json:"direction"`
	Detail     string    `json:"detail"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	LastCandle Candle    `json:"lastCandle"`
}

// TradePlan is the enrichment collaborator's output. Fields may be
// zero-valued when the model omits them; callers must tolerate that.
type TradePlan struct {
	Direction    string    `json:"direction"`
	BiasReason   string    `json:"bias_reason,omitempty"`
	Entry        float64   `json:"entry"`
	Stop         float64   `json:"stop"`
	Targets      []float64 `json:"targets"`
	RiskToReward string    `json:"risk_to_reward"`
	Notes        string    `json:"notes,omitempty"`
}

// PatternConfig selects which detectors run for a session. Immutable for
// the session's lifetime.
type PatternConfig struct {
	FVG       bool `json:"fvg"`
	MSS       bool `json:"mss"`
	Liquidity bool `json:"liquidity"`
	OrderBlk  bool `json:"orderBlock"`
	Breaker   bool `json:"breaker"`
	Killzone  bool `json:"killzone"`
	FVGRetest bool `json:"fvgRetest"`
}

// DefaultPatternConfig mirrors the historical defaults: the three core
// detectors on, extended detectors opt-in.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{FVG: true, MSS: true, Liquidity: true}
}
