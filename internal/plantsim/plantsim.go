// Package plantsim simulates the boiler's physical plant for local
// development and integration tests: a state struct stepped once per
// tick with exponential-decay/drift helpers, driving drum water level
// and steam production from commanded pump and valve state.
package plantsim

import (
	"math"
	"math/rand"
	"time"

	"github.com/holla2040/steamboiler/internal/classify"
)

// Plant holds the simulated physical state of one boiler.
type Plant struct {
	waterLevel float64
	steamLevel float64

	pumpOpen        []bool // physical valve state, may lag commanded state
	pumpControlOpen []bool // control-side feedback, may diverge under simulated fault
	valveOpen       bool

	capacity []float64 // per-pump fill rate, units/cycle at full flow
	failRate float64   // per-pump, per-cycle probability the commanded open/closed state is not applied

	lastUpdate time.Time
}

// NewPlant creates a plant simulator with the given per-pump capacities,
// starting at zero water/steam with every pump closed.
func NewPlant(capacity []float64, failRate float64) *Plant {
	n := len(capacity)
	return &Plant{
		capacity:        append([]float64(nil), capacity...),
		failRate:        failRate,
		pumpOpen:        make([]bool, n),
		pumpControlOpen: make([]bool, n),
		lastUpdate:      time.Now(),
	}
}

// SetInitialLevel seeds the starting water level, for tests that need a
// particular cold-start reading.
func (p *Plant) SetInitialLevel(level float64) {
	p.waterLevel = level
}

// SetLastUpdate overrides the simulator's clock, letting tests drive
// HandleCycle with a deterministic dt instead of real wall-clock time.
func (p *Plant) SetLastUpdate(t time.Time) {
	p.lastUpdate = t
}

// HandleCycle advances the simulation by one tick: it applies the
// controller's commanded pump-open and valve state (subject to a random
// per-pump failure to stay in its previous state, simulating a stuck
// actuator), then evolves water and steam level.
func (p *Plant) HandleCycle(commandedOpen []bool, valveOpen bool) {
	now := time.Now()
	dt := now.Sub(p.lastUpdate).Seconds()
	if dt <= 0 {
		dt = 5.0
	}
	p.lastUpdate = now

	for i, want := range commandedOpen {
		if i >= len(p.pumpOpen) {
			break
		}
		if p.failRate > 0 && rand.Float64() < p.failRate {
			// Actuator stuck: physical state doesn't follow the command
			// this cycle, but control-side feedback still reports it.
			p.pumpControlOpen[i] = want
			continue
		}
		p.pumpOpen[i] = want
		p.pumpControlOpen[i] = want
	}
	p.valveOpen = valveOpen

	inflow := 0.0
	for i, open := range p.pumpOpen {
		if open && i < len(p.capacity) {
			inflow += p.capacity[i]
		}
	}
	p.waterLevel += inflow * dt / 5.0

	outflow := 0.0
	if p.valveOpen {
		outflow = driftToward(0, p.waterLevel*0.05, dt, 0.2)
	}
	p.waterLevel -= outflow
	p.waterLevel += (rand.Float64() - 0.5) * 0.5

	targetSteam := 0.0
	if p.valveOpen {
		targetSteam = outflow * 1.2
	}
	p.steamLevel = exponentialDecay(p.steamLevel, targetSteam, dt, 3.0)
	p.steamLevel += (rand.Float64() - 0.5) * 0.2
	p.steamLevel = math.Max(0, p.steamLevel)
}

// Snapshot is a point-in-time view of the plant, shaped to feed directly
// into the controller's next inbound batch.
type Snapshot struct {
	WaterLevel      float64
	SteamLevel      float64
	PumpOpen        []bool
	PumpControlOpen []bool
}

// Snapshot returns the plant's current readings.
func (p *Plant) Snapshot() Snapshot {
	return Snapshot{
		WaterLevel:      p.waterLevel,
		SteamLevel:      p.steamLevel,
		PumpOpen:        append([]bool(nil), p.pumpOpen...),
		PumpControlOpen: append([]bool(nil), p.pumpControlOpen...),
	}
}

// Batch renders the snapshot as the classify.Message set a mailbox would
// carry for one cycle: LEVEL_v, STEAM_v, and a PUMP_STATE_n_b /
// PUMP_CONTROL_STATE_n_b pair per pump.
func (s Snapshot) Batch() []classify.Message {
	batch := make([]classify.Message, 0, 2+2*len(s.PumpOpen))
	batch = append(batch, classify.Level(s.WaterLevel), classify.Steam(s.SteamLevel))
	for i, open := range s.PumpOpen {
		batch = append(batch, classify.PumpState(i, open))
	}
	for i, open := range s.PumpControlOpen {
		batch = append(batch, classify.PumpControlState(i, open))
	}
	return batch
}

func exponentialDecay(current, target, dt, tau float64) float64 {
	return target + (current-target)*math.Exp(-dt/tau)
}

func driftToward(current, target, dt, rate float64) float64 {
	diff := target - current
	step := diff * rate * dt
	if math.Abs(step) > math.Abs(diff) {
		return target
	}
	return current + step
}
