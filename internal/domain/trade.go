package domain

import "time"

// Direction is the side of a spread position.
type Direction int

const (
	// DirectionLong buys the spread: long A, short B. Entered when the
	// z-score is stretched below the negative entry threshold.
	DirectionLong Direction = 1

	// DirectionShort sells the spread: short A, long B. Entered when the
	// z-score is stretched above the positive entry threshold.
	DirectionShort Direction = -1
)

// String returns a human-readable label for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "long_spread"
	case DirectionShort:
		return "short_spread"
	default:
		return "flat"
	}
}

// Trade is one closed round trip produced by the backtest engine. PnL is the
// spread delta of the bar that triggered the exit, not the full
// holding-period return.
type Trade struct {
	EntryTime time.Time
	ExitTime  time.Time
	Direction Direction
	EntryZ    float64
	ExitZ     float64
	PnL       float64
}
