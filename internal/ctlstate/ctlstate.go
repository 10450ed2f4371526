// Package ctlstate holds the boiler's static configuration and the mutable
// state owned exclusively by the mode controller.
package ctlstate

import "fmt"

// Cycle is the fixed sampling interval, in time-units, that every
// hydraulic prediction assumes between clock invocations.
const Cycle = 5.0

// Mode is the controller's top-level supervisory state.
type Mode int

const (
	Waiting Mode = iota
	Ready
	Normal
	Degraded
	Rescue
	EmergencyStop
)

func (m Mode) String() string {
	switch m {
	case Waiting:
		return "WAITING"
	case Ready:
		return "READY"
	case Normal:
		return "NORMAL"
	case Degraded:
		return "DEGRADED"
	case Rescue:
		return "RESCUE"
	case EmergencyStop:
		return "EMERGENCY_STOP"
	default:
		return "UNKNOWN"
	}
}

// Failure classifies the current degradation. Valid only while mode is
// Degraded or Rescue.
type Failure int

const (
	NoFailure Failure = iota
	PumpState
	PumpControlState
	WaterLevel
	SteamLevel
)

func (f Failure) String() string {
	switch f {
	case NoFailure:
		return "NONE"
	case PumpState:
		return "PUMP_STATE"
	case PumpControlState:
		return "PUMP_CONTROL_STATE"
	case WaterLevel:
		return "WATER_LEVEL"
	case SteamLevel:
		return "STEAM_LEVEL"
	default:
		return "UNKNOWN"
	}
}

// BoilerCharacteristics is the boiler's immutable physical configuration
// for the run. The source of these values (a config file, a supervisory
// service) is external; this type is only the interface the core reads.
type BoilerCharacteristics struct {
	Capacity         float64   // C
	MinimalLimit     float64   // L_min
	MaximalLimit     float64   // L_max
	MinimalNormal    float64   // N_min
	MaximalNormal    float64   // N_max
	MaximalSteamRate float64   // W
	PumpCapacity     []float64 // cap[0..P)
}

// NumberOfPumps returns P, the configured pump count.
func (b BoilerCharacteristics) NumberOfPumps() int {
	return len(b.PumpCapacity)
}

// NormalMid returns N_mid, the midpoint of the normal operating band.
func (b BoilerCharacteristics) NormalMid() float64 {
	return (b.MinimalNormal + b.MaximalNormal) / 2
}

// Validate checks the invariants a well-formed configuration must satisfy:
// I5, and the ordering of the normal/limit envelopes.
func (b BoilerCharacteristics) Validate() error {
	if b.NumberOfPumps() < 1 {
		return fmt.Errorf("ctlstate: pump count must be >= 1, got %d", b.NumberOfPumps())
	}
	if !(b.MinimalLimit < b.MinimalNormal && b.MinimalNormal < b.MaximalNormal && b.MaximalNormal < b.MaximalLimit) {
		return fmt.Errorf("ctlstate: envelope must satisfy L_min < N_min < N_max < L_max, got L_min=%v N_min=%v N_max=%v L_max=%v",
			b.MinimalLimit, b.MinimalNormal, b.MaximalNormal, b.MaximalLimit)
	}
	mid := b.NormalMid()
	if !(b.MinimalNormal <= mid && mid <= b.MaximalNormal) {
		return fmt.Errorf("ctlstate: I5 violated: N_mid=%v not within [%v,%v]", mid, b.MinimalNormal, b.MaximalNormal)
	}
	if b.Capacity <= b.MaximalLimit {
		return fmt.Errorf("ctlstate: capacity %v must exceed maximal limit %v", b.Capacity, b.MaximalLimit)
	}
	for i, c := range b.PumpCapacity {
		if c <= 0 {
			return fmt.Errorf("ctlstate: pump %d capacity must be positive, got %v", i, c)
		}
	}
	return nil
}

// ControllerState is the mutable state owned exclusively by the mode
// controller across one run. It is created once at construction and
// never persisted or reloaded across process restarts.
type ControllerState struct {
	Mode    Mode
	Failure Failure

	WaterLevel     float64
	PrevWaterLevel float64
	SteamLevel     float64
	PrevSteamLevel float64

	PumpOpen    []bool
	ActivePumps int
	ValveOpen   bool
	Initialized bool

	IdealPredictedWater     float64
	PrevIdealPredictedWater float64

	// FailedPump is the index of the pump most recently reported as
	// faulty by a pump-state or pump-control-state mismatch. Valid only
	// while Failure is PumpState or PumpControlState.
	FailedPump int
}

// New creates a ControllerState for a boiler with the given pump count,
// with Mode = Waiting and every dynamic field zeroed, except FailedPump,
// which starts at -1 (no pump).
func New(numPumps int) *ControllerState {
	return &ControllerState{
		Mode:       Waiting,
		Failure:    NoFailure,
		PumpOpen:   make([]bool, numPumps),
		FailedPump: -1,
	}
}

// recountActivePumps restores invariant I1 from PumpOpen. SetPumpOpen calls
// it after every change it makes; code that writes PumpOpen directly (such
// as pumpselect.Delta) sets ActivePumps itself.
func (s *ControllerState) recountActivePumps() {
	n := 0
	for _, open := range s.PumpOpen {
		if open {
			n++
		}
	}
	s.ActivePumps = n
}

// SetPumpOpen sets PumpOpen[i] and keeps ActivePumps (invariant I1) in
// sync with it.
func (s *ControllerState) SetPumpOpen(i int, open bool) {
	s.PumpOpen[i] = open
	s.recountActivePumps()
}

// CheckInvariants reports the first invariant violation found, or nil if
// the state is well-formed. Intended for use in tests (P3) and assertions
// at the end of a cycle, never on the hot path.
func (s *ControllerState) CheckInvariants(b BoilerCharacteristics) error {
	n := 0
	for _, open := range s.PumpOpen {
		if open {
			n++
		}
	}
	if n != s.ActivePumps {
		return fmt.Errorf("I1 violated: active_pumps=%d but %d pumps open", s.ActivePumps, n)
	}
	if s.Mode == Normal {
		if s.Failure != NoFailure {
			return fmt.Errorf("I2 violated: mode=NORMAL but failure=%s", s.Failure)
		}
		if !(b.MinimalLimit <= s.WaterLevel && s.WaterLevel <= b.MaximalLimit) {
			return fmt.Errorf("I2 violated: mode=NORMAL but water_level=%v outside [%v,%v]", s.WaterLevel, b.MinimalLimit, b.MaximalLimit)
		}
	}
	return nil
}
