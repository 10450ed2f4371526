// Package predict implements the hydraulic predictor: for every candidate
// pump count it estimates the water-level interval after one cycle.
package predict

import "github.com/holla2040/steamboiler/internal/ctlstate"

// Estimate is the predicted post-cycle interval for one candidate pump
// count.
type Estimate struct {
	PumpCount int
	Hi        float64
	Lo        float64
	Mid       float64
}

// Predict computes Estimate for every k in [0, numPumps], given the
// current water level w, current steam reading s, the boiler's maximal
// steam rate W and per-pump capacities.
//
// hi(k) is the maximum plausible post-cycle level (steam consumption
// equals the current reading); lo(k) is the minimum plausible level
// (steam consumption equals the maximal rated value); mid(k) is their
// midpoint, the estimator the selector steers by.
//
// Pump contribution at k>=1 is charged at cap[k-1]*k — the capacity of
// the *last* engaged pump index, multiplied by the count — rather than
// summing cap[0..k). This is only equivalent to a true per-pump sum when
// capacities are uniform.
func Predict(w, s, maxSteamRate float64, capacity []float64) []Estimate {
	numPumps := len(capacity)
	out := make([]Estimate, numPumps+1)

	out[0] = Estimate{
		PumpCount: 0,
		Hi:        w - ctlstate.Cycle*s,
		Lo:        w - ctlstate.Cycle*maxSteamRate,
	}
	out[0].Mid = (out[0].Hi + out[0].Lo) / 2

	for k := 1; k <= numPumps; k++ {
		pumped := ctlstate.Cycle * capacity[k-1] * float64(k)
		hi := w + pumped - ctlstate.Cycle*s
		lo := w + pumped - ctlstate.Cycle*maxSteamRate
		out[k] = Estimate{
			PumpCount: k,
			Hi:        hi,
			Lo:        lo,
			Mid:       (hi + lo) / 2,
		}
	}
	return out
}
