// Package pumpselect implements the pump selector: it chooses the pump
// count minimizing deviation from the normal band's midpoint and emits
// the open/close deltas to reach it.
package pumpselect

import (
	"math"

	"github.com/holla2040/steamboiler/internal/classify"
	"github.com/holla2040/steamboiler/internal/predict"
)

// Select picks k* = argmin_k |mid(k) - normalMid|, ties broken toward the
// smallest k, over the given estimates.
func Select(estimates []predict.Estimate, normalMid float64) int {
	best := 0
	bestDist := math.Abs(estimates[0].Mid - normalMid)
	for _, e := range estimates[1:] {
		dist := math.Abs(e.Mid - normalMid)
		if dist < bestDist {
			best = e.PumpCount
			bestDist = dist
		}
	}
	return best
}

// Delta computes the OPEN_PUMP/CLOSE_PUMP commands to reconcile
// activePumps to target, walking pumps 0..P-1 in order and trusting
// pumpControlFeedback (the plant's reported control-state, "closed" or
// "open") to decide which pump to touch next.
//
// It mutates pumpOpen and returns the new activePumps count alongside the
// emitted messages; it never emits a command when target == activePumps.
func Delta(pumpOpen []bool, activePumps, target int, pumpControlFeedback []bool) ([]classify.Message, int) {
	var msgs []classify.Message

	if target > activePumps {
		for i := 0; i < len(pumpOpen) && activePumps < target; i++ {
			if !pumpControlFeedback[i] {
				msgs = append(msgs, classify.Indexed(classify.KindOpenPump, i))
				pumpOpen[i] = true
				activePumps++
			}
		}
	} else if target < activePumps {
		for i := 0; i < len(pumpOpen) && activePumps > target; i++ {
			if pumpControlFeedback[i] {
				msgs = append(msgs, classify.Indexed(classify.KindClosePump, i))
				pumpOpen[i] = false
				activePumps--
			}
		}
	}

	return msgs, activePumps
}
