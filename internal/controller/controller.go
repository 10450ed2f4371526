// Package controller implements the mode controller: the top-level state
// machine that composes the classifier, transmission validator, fault
// detector, predictor and selector into one per-cycle decision.
package controller

import (
	"github.com/holla2040/steamboiler/internal/classify"
	"github.com/holla2040/steamboiler/internal/ctlstate"
	"github.com/holla2040/steamboiler/internal/fault"
	"github.com/holla2040/steamboiler/internal/predict"
	"github.com/holla2040/steamboiler/internal/pumpselect"
	"github.com/holla2040/steamboiler/internal/transmit"
)

// Inbound is the read-only, cycle-scoped batch the plant delivers: a
// sized, randomly-readable sequence of messages.
type Inbound interface {
	Size() int
	Read(i int) classify.Message
}

// Outbound is the append-only destination for one cycle's command batch.
type Outbound interface {
	Send(m classify.Message)
}

// Controller is the single-threaded, purely synchronous boiler mode
// controller. Its only entry point is Clock; state is owned exclusively
// by the controller and never persisted across runs.
type Controller struct {
	chars ctlstate.BoilerCharacteristics
	state *ctlstate.ControllerState
}

// New creates a Controller in mode WAITING for a boiler with the given
// characteristics.
func New(chars ctlstate.BoilerCharacteristics) (*Controller, error) {
	if err := chars.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		chars: chars,
		state: ctlstate.New(chars.NumberOfPumps()),
	}, nil
}

// State returns a snapshot of the controller's mutable state, for
// diagnostics, status feeds and tests. The returned value is a copy;
// mutating it has no effect on the controller.
func (c *Controller) State() ctlstate.ControllerState {
	s := *c.state
	s.PumpOpen = append([]bool(nil), c.state.PumpOpen...)
	return s
}

// StatusMessage reports a human-readable mode name. Not part of the
// safety protocol.
func (c *Controller) StatusMessage() string {
	return c.state.Mode.String()
}

// Clock runs one cycle to completion: it drains inbound, decides, and
// sends the resulting command batch to outbound in the mandated order.
// It never blocks and never reads back from outbound.
func (c *Controller) Clock(inbound Inbound, outbound Outbound) {
	for _, m := range c.run(readAll(inbound)) {
		outbound.Send(m)
	}
}

func readAll(inbound Inbound) []classify.Message {
	n := inbound.Size()
	batch := make([]classify.Message, n)
	for i := 0; i < n; i++ {
		batch[i] = inbound.Read(i)
	}
	return batch
}

// run is Clock's pure core: batch in, command batch out. Kept separate
// from Clock so tests can drive it directly with plain slices.
func (c *Controller) run(batch []classify.Message) []classify.Message {
	if c.state.Mode == ctlstate.EmergencyStop {
		// Terminal mode: re-emits exactly this one message forever.
		return []classify.Message{classify.ModeMsg("EMERGENCY_STOP")}
	}

	numPumps := c.chars.NumberOfPumps()
	classifier := classify.New(batch)
	extracted := transmit.Extract(classifier, numPumps)

	if err := transmit.Validate(extracted, numPumps); err != nil {
		c.state.Mode = ctlstate.EmergencyStop
		return []classify.Message{classify.ModeMsg("EMERGENCY_STOP")}
	}

	var out []classify.Message
	switch c.state.Mode {
	case ctlstate.Waiting:
		out = c.handleWaiting(classifier, extracted)
	case ctlstate.Ready:
		out = c.handleReady(classifier, extracted)
	default: // Normal, Degraded, Rescue
		out = c.handleActive(classifier, extracted)
	}

	if c.state.Mode == ctlstate.EmergencyStop {
		// A safety violation reached this cycle: discard every other
		// message the cycle would otherwise have produced.
		return []classify.Message{classify.ModeMsg("EMERGENCY_STOP")}
	}

	// Every non-emergency cycle additionally emits this trailing message
	// regardless of the true mode.
	out = append(out, classify.ModeMsg("INITIALISATION"))
	return out
}

// handleWaiting runs the WAITING→READY initialization handshake. Absent
// STEAM_BOILER_WAITING, the cycle is a no-op.
func (c *Controller) handleWaiting(classifier *classify.Classifier, extracted transmit.Extracted) []classify.Message {
	if len(classifier.ExtractAll(classify.KindSteamBoilerWaiting)) == 0 {
		return nil
	}

	var out []classify.Message
	s := c.state

	s.PrevWaterLevel = s.WaterLevel
	s.WaterLevel = extracted.Level.Value

	if s.WaterLevel > c.chars.MaximalNormal && !s.ValveOpen {
		s.ValveOpen = true
		out = append(out, classify.Empty(classify.KindValve))
	} else if s.WaterLevel < c.chars.MinimalNormal {
		for i := 0; i < c.chars.NumberOfPumps(); i++ {
			s.SetPumpOpen(i, true)
			out = append(out, classify.Indexed(classify.KindOpenPump, i))
		}
	}

	if c.chars.MinimalNormal <= s.WaterLevel && s.WaterLevel <= c.chars.MaximalNormal {
		s.Mode = ctlstate.Ready
		out = append(out, classify.Empty(classify.KindProgramReady))
	}

	return out
}

// handleReady runs the READY-state steam check and waits for
// PHYSICAL_UNITS_READY.
func (c *Controller) handleReady(classifier *classify.Classifier, extracted transmit.Extracted) []classify.Message {
	s := c.state
	s.PrevSteamLevel = s.SteamLevel
	s.SteamLevel = extracted.Steam.Value

	// Compared literally even on the very first READY cycle, where
	// PrevSteamLevel is still its zero value.
	if s.SteamLevel < s.PrevSteamLevel || s.SteamLevel > c.chars.MaximalSteamRate {
		s.Mode = ctlstate.Degraded
		s.Failure = ctlstate.SteamLevel
		return []classify.Message{classify.ModeMsg("DEGRADED"), classify.Empty(classify.KindSteamFailureDetection)}
	}

	if len(classifier.ExtractAll(classify.KindPhysicalUnitsReady)) > 0 {
		s.Mode = ctlstate.Normal
		s.Initialized = true
		return []classify.Message{classify.ModeMsg("NORMAL")}
	}

	return nil
}

// handleActive runs the NORMAL/DEGRADED/RESCUE per-cycle action: assign
// levels, detect faults, handle repair, and — while healthy — run the
// predictor and selector.
func (c *Controller) handleActive(classifier *classify.Classifier, extracted transmit.Extracted) []classify.Message {
	s := c.state
	numPumps := c.chars.NumberOfPumps()

	s.PrevWaterLevel = s.WaterLevel
	s.WaterLevel = extracted.Level.Value
	s.PrevSteamLevel = s.SteamLevel
	s.SteamLevel = extracted.Steam.Value

	pumpState := make([]bool, numPumps)
	pumpControl := make([]bool, numPumps)
	for i := 0; i < numPumps; i++ {
		pumpState[i] = extracted.PumpState[i].Flag
		pumpControl[i] = extracted.PumpControlState[i].Flag
	}

	healthy, events := fault.Detect(s, c.chars, pumpState, pumpControl)
	out := append([]classify.Message(nil), events...)

	if s.Mode == ctlstate.EmergencyStop {
		return out
	}

	out = append(out, c.handleRepair(classifier)...)

	if healthy {
		estimates := predict.Predict(s.WaterLevel, s.SteamLevel, c.chars.MaximalSteamRate, c.chars.PumpCapacity)
		target := pumpselect.Select(estimates, c.chars.NormalMid())
		deltas, newActive := pumpselect.Delta(s.PumpOpen, s.ActivePumps, target, pumpControl)
		s.ActivePumps = newActive
		out = append(out, deltas...)

		s.PrevIdealPredictedWater = s.IdealPredictedWater
		s.IdealPredictedWater = estimates[target].Mid
	}

	return out
}

// handleRepair implements the four repair pairings: the acknowledgement
// message is observed and ignored; the repair notice returns the
// controller to NORMAL.
func (c *Controller) handleRepair(classifier *classify.Classifier) []classify.Message {
	s := c.state
	if s.Mode != ctlstate.Degraded && s.Mode != ctlstate.Rescue {
		return nil
	}

	var repaired bool
	switch s.Failure {
	case ctlstate.PumpState, ctlstate.PumpControlState:
		repaired = len(classifier.ExtractAll(classify.KindPumpRepaired)) > 0
	case ctlstate.SteamLevel:
		repaired = len(classifier.ExtractAll(classify.KindSteamRepaired)) > 0
	case ctlstate.WaterLevel:
		repaired = len(classifier.ExtractAll(classify.KindLevelRepaired)) > 0
	}

	if !repaired {
		return nil
	}

	s.Mode = ctlstate.Normal
	s.Failure = ctlstate.NoFailure
	s.FailedPump = -1
	return []classify.Message{classify.ModeMsg("NORMAL")}
}
