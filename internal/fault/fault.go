// Package fault implements the sensor/actuator fault detector: ordered
// mismatch checks against pump feedback, steam monotonicity, and
// water-level sanity, plus the independent negative-sensor safety guard.
package fault

import (
	"github.com/holla2040/steamboiler/internal/classify"
	"github.com/holla2040/steamboiler/internal/ctlstate"
)

// Detect runs the fault-detection pass for one cycle. pumpState and
// pumpControlState are the plant's reported feedback, indexed 0..P-1.
// state.WaterLevel/SteamLevel must already hold this cycle's readings
// and state.Prev* the prior cycle's, per the mode controller's
// "assign levels" step.
//
// It mutates state (mode, failure, failed pump, pump_open/active_pumps on
// a feedback mismatch) and returns the emitted event messages together
// with the "all healthy" flag the mode controller uses to decide whether
// to run the predictor and selector this cycle.
func Detect(state *ctlstate.ControllerState, chars ctlstate.BoilerCharacteristics, pumpState, pumpControlState []bool) (healthy bool, events []classify.Message) {
	classified := false

	// 1. Pump-state mismatch: ground truth is the observed feedback.
	for i, open := range pumpState {
		if state.PumpOpen[i] != open {
			state.Failure = ctlstate.PumpState
			state.Mode = ctlstate.Degraded
			state.FailedPump = i
			state.SetPumpOpen(i, open)
			events = append(events,
				classify.ModeMsg("DEGRADED"),
				classify.Indexed(classify.KindPumpFailureDetection, i),
				classify.Indexed(classify.KindClosePump, i),
			)
			classified = true
			break
		}
	}

	// 2. Pump-control-state mismatch (only checked when no pump-state
	// mismatch already classified — first match wins).
	if !classified {
		for i, open := range pumpControlState {
			if state.PumpOpen[i] != open {
				state.Failure = ctlstate.PumpControlState
				state.Mode = ctlstate.Degraded
				state.FailedPump = i
				state.SetPumpOpen(i, open)
				events = append(events,
					classify.ModeMsg("DEGRADED"),
					classify.Indexed(classify.KindPumpControlFailureDetection, i),
				)
				classified = true
				break
			}
		}
	}

	// 3. Steam sensor fault: steam is expected monotone non-decreasing
	// within a cycle step, and bounded by the maximal rate.
	if !classified {
		if state.SteamLevel < state.PrevSteamLevel || state.SteamLevel > chars.MaximalSteamRate {
			state.Failure = ctlstate.SteamLevel
			state.Mode = ctlstate.Degraded
			events = append(events, classify.ModeMsg("DEGRADED"), classify.Empty(classify.KindSteamFailureDetection))
			classified = true
		}
	}

	anyFault := classified

	// 4a. Water-level safety violation — always checked, overrides any
	// mode set above (safety violations take precedence).
	if state.Initialized && ((state.WaterLevel > 0 && state.WaterLevel < chars.MinimalLimit) || state.WaterLevel > chars.MaximalLimit) {
		state.Mode = ctlstate.EmergencyStop
		anyFault = true
	} else if !classified && (state.WaterLevel < 0 || state.WaterLevel >= chars.Capacity) {
		// 4b. Rescue condition — lowest priority; only takes effect if
		// nothing higher-priority already classified this cycle.
		state.Failure = ctlstate.WaterLevel
		state.Mode = ctlstate.Rescue
		events = append(events, classify.ModeMsg("RESCUE"), classify.Empty(classify.KindLevelFailureDetection))
		anyFault = true
	}

	// Negative-sensor guard: independent of the ordered checks above.
	if state.WaterLevel < 0 && state.SteamLevel < 0 {
		state.Mode = ctlstate.EmergencyStop
		anyFault = true
	}

	return !anyFault, events
}
