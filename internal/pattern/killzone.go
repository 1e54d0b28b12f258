package pattern

import (
	"fmt"

	"trading-alertsv1/internal/model"
)

// killzones are the intraday windows (UTC hours, half-open) in which ICT
// setups are traded. The detector fires once when the newest candle is
// the first of the window to fall inside a killzone.
var killzones = []struct {
	name       string
	start, end int
}{
	{"London", 7, 10},
	{"New York", 12, 15},
}

func killzoneFor(c model.Candle) string {
	h := c.Time.UTC().Hour()
	for _, kz := range killzones {
		if h >= kz.start && h < kz.end {
			return kz.name
		}
	}
	return ""
}

// detectKillzone alerts on entry into a killzone. Direction follows the
// entering candle's close so downstream consumers always get a side.
func detectKillzone(c []model.Candle) *Hit {
	if len(c) < 2 {
		return nil
	}
	last := c[len(c)-1]
	prev := c[len(c)-2]

	zone := killzoneFor(last)
	if zone == "" || killzoneFor(prev) == zone {
		return nil
	}

	dir := model.Long
	if last.Close < last.Open {
		dir = model.Short
	}
	return &Hit{
		Pattern:   model.PatternKillzone,
		Direction: dir,
		Detail:    fmt.Sprintf("%s killzone opened.", zone),
	}
}
