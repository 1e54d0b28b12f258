// Package ticktable holds tick size and tick value metadata for common
// futures contracts. Lookups are case-insensitive on the contract root.
package ticktable

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Info describes one contract's tick geometry.
type Info struct {
	Description string  `json:"description" yaml:"description"`
	TickSize    float64 `json:"tickSize" yaml:"tickSize"`
	TickValue   float64 `json:"tickValue" yaml:"tickValue"`
}

// Table maps contract roots to tick info.
type Table struct {
	entries map[string]Info
}

var builtin = map[string]Info{
	// Equity index (CME)
	"ES":  {"E-mini S&P 500", 0.25, 12.50},
	"MES": {"Micro E-mini S&P 500", 0.25, 1.25},
	"NQ":  {"E-mini Nasdaq-100", 0.25, 5.00},
	"MNQ": {"Micro E-mini Nasdaq-100", 0.25, 0.50},
	"YM":  {"E-mini Dow", 1.0, 5.00},
	"MYM": {"Micro E-mini Dow", 1.0, 0.50},
	"RTY": {"E-mini Russell 2000", 0.10, 5.00},
	"M2K": {"Micro E-mini Russell 2000", 0.10, 1.00},

	// FX futures (CME)
	"6E":  {"Euro FX", 0.00005, 6.25},
	"6J":  {"Japanese Yen", 0.0000005, 6.25},
	"6B":  {"British Pound", 0.0001, 6.25},
	"6A":  {"Australian Dollar", 0.0001, 10.00},
	"6C":  {"Canadian Dollar", 0.00005, 5.00},
	"6N":  {"New Zealand Dollar", 0.0001, 5.00},
	"M6E": {"Micro Euro FX", 0.00005, 1.25},
	"M6B": {"Micro British Pound", 0.0001, 1.25},

	// Interest rate futures (CME)
	"ZN":  {"10-Year T-Note", 0.015625, 15.625},
	"ZB":  {"30-Year T-Bond", 0.03125, 31.25},
	"ZF":  {"5-Year T-Note", 0.0078125, 7.8125},
	"ZT":  {"2-Year T-Note", 0.00390625, 7.8125},
	"GE":  {"3-Month SOFR (SR3)", 0.0025, 6.25},
	"SR3": {"3-Month SOFR", 0.0025, 6.25},

	// Metals (COMEX)
	"GC":  {"Gold", 0.10, 10.00},
	"MGC": {"Micro Gold", 0.10, 1.00},
	"SI":  {"Silver", 0.005, 25.00},
	"SIL": {"Micro Silver", 0.005, 2.50},
	"HG":  {"Copper", 0.0005, 12.50},
	"PL":  {"Platinum", 0.10, 5.00},
	"PA":  {"Palladium", 0.50, 5.00},

	// Energy (NYMEX)
	"CL":  {"Crude Oil", 0.01, 10.00},
	"MCL": {"Micro Crude Oil", 0.01, 1.00},
	"NG":  {"Natural Gas", 0.001, 10.00},
	"RB":  {"RBOB Gasoline", 0.0001, 4.20},
	"HO":  {"Heating Oil", 0.0001, 4.20},

	// Agricultural (CBOT)
	"ZC": {"Corn", 0.0025, 12.50},
	"ZS": {"Soybeans", 0.0025, 12.50},
	"ZW": {"Wheat", 0.0025, 12.50},
	"ZO": {"Oats", 0.0025, 12.50},
	"ZL": {"Soybean Oil", 0.0001, 6.00},
	"ZM": {"Soybean Meal", 0.10, 10.00},

	// Equity index (Europe / ICE / Eurex)
	"FDAX": {"DAX 40 (Eurex)", 0.5, 12.50},
	"FDXM": {"Mini-DAX (Eurex)", 0.5, 2.50},
	"FESX": {"Euro Stoxx 50 (Eurex)", 1.0, 10.00},
	"Z":    {"FTSE 100 (ICE)", 0.5, 5.00},
	"DX":   {"US Dollar Index (ICE)", 0.005, 5.00},

	// Crypto futures (CME)
	"BTC": {"Bitcoin", 5.0, 25.00},
	"MBT": {"Micro Bitcoin", 5.0, 0.50},
	"ET":  {"Ether", 0.25, 12.50},
	"MET": {"Micro Ether", 0.25, 1.25},
}

// New returns a table with the built-in contracts.
func New() *Table {
	entries := make(map[string]Info, len(builtin))
	for k, v := range builtin {
		entries[k] = v
	}
	return &Table{entries: entries}
}

// Load returns the built-in table merged with overrides from a YAML
// file mapping symbol → info. An empty path returns the built-ins.
func Load(path string) (*Table, error) {
	t := New()
	if path == "" {
		return t, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ticktable: read %s: %w", path, err)
	}

	var overrides map[string]Info
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("ticktable: parse %s: %w", path, err)
	}
	for sym, info := range overrides {
		t.entries[strings.ToUpper(strings.TrimSpace(sym))] = info
	}
	return t, nil
}

// Get looks up a symbol, case-insensitively, trimming whitespace.
func (t *Table) Get(symbol string) (Info, bool) {
	info, ok := t.entries[strings.ToUpper(strings.TrimSpace(symbol))]
	return info, ok
}

// RoundToTick snaps a price to the symbol's nearest valid tick. Unknown
// symbols return the price unchanged.
func (t *Table) RoundToTick(price float64, symbol string) float64 {
	info, ok := t.Get(symbol)
	if !ok || info.TickSize == 0 {
		return price
	}
	ticks := math.Round(price / info.TickSize)
	// Trim float noise the multiplication reintroduces.
	const scale = 1e10
	return math.Round(ticks*info.TickSize*scale) / scale
}

// Len reports the number of known contracts.
func (t *Table) Len() int { return len(t.entries) }
