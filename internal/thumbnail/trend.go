package thumbnail

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Trend groups the delta fields; they are only ever present together.
type Trend struct {
	DeltaPct  int    `json:"delta_pct"`
	Direction string `json:"delta_direction"`
	Period    string `json:"delta_period"`
}

const (
	DirectionUp     = "up"
	DirectionDown   = "down"
	DirectionStable = "stable"
)

const millisPerDay = 24 * 60 * 60 * 1000

var dec100 = decimal.NewFromInt(100)

// summarizeTrend computes the percent change between the first and
// last rows. Fewer than two rows, mixed units, or a zero first value
// yield no trend at all.
func summarizeTrend(rows []Row, mixed bool) *Trend {
	if len(rows) < 2 || mixed {
		return nil
	}

	first := rows[0]
	last := rows[len(rows)-1]
	if first.Value == 0 {
		return nil
	}

	base := decimal.NewFromFloat(first.Value)
	pct := decimal.NewFromFloat(last.Value).Sub(base).Div(base.Abs()).Mul(dec100)
	deltaPct := int(pct.Round(0).IntPart())

	return &Trend{
		DeltaPct:  deltaPct,
		Direction: classifyDirection(deltaPct),
		Period:    periodLabel(last.TimeMs - first.TimeMs),
	}
}

// classifyDirection applies a ±1% dead band around "no change".
func classifyDirection(deltaPct int) string {
	switch {
	case deltaPct > 1:
		return DirectionUp
	case deltaPct < -1:
		return DirectionDown
	default:
		return DirectionStable
	}
}

// periodLabel renders the elapsed span in the coarsest unit that still
// reads as at least one whole unit: years, months, weeks, then days.
func periodLabel(elapsedMs int64) string {
	days := float64(elapsedMs) / float64(millisPerDay)
	switch {
	case days >= 365:
		return fmt.Sprintf("%dy", int(math.Round(days/365)))
	case days >= 30:
		return fmt.Sprintf("%dm", int(math.Round(days/30)))
	case days >= 7:
		return fmt.Sprintf("%dw", int(math.Round(days/7)))
	default:
		return fmt.Sprintf("%dd", int(math.Round(days)))
	}
}
