package targeting

import (
	"errors"

	"github.com/artylery/smash/pkg/core"
)

// ErrNotComputed marks ballistic values that have no model behind them.
var ErrNotComputed = errors.New("ballistic value not computed")

// ApexHeight is a placeholder: there is no projectile model, so it always
// returns 0 with ErrNotComputed.
func ApexHeight(core.ShotInfo) (meters int, err error) {
	return 0, ErrNotComputed
}

// FlightTime is a placeholder with the same contract as ApexHeight.
func FlightTime(core.ShotInfo) (seconds float64, err error) {
	return 0, ErrNotComputed
}
