// Package transmit implements the transmission-layer validator: the check
// that decides whether an inbound batch is structurally sufficient to
// drive a control decision this cycle.
package transmit

import "github.com/holla2040/steamboiler/internal/classify"

// Extracted holds the classifier output the validator inspects.
type Extracted struct {
	Level            classify.Message
	LevelOK          bool
	Steam            classify.Message
	SteamOK          bool
	PumpState        []classify.Message
	PumpControlState []classify.Message
}

// Validate reports whether the inbound batch is structurally valid for
// the given pump count. A transmission failure is declared when the
// level or steam message is absent, or either pump-feedback array's
// length differs from numPumps. A transmission failure is fatal for the
// cycle and forces EMERGENCY_STOP.
func Validate(e Extracted, numPumps int) error {
	if !e.LevelOK {
		return &Error{Reason: "level message absent"}
	}
	if !e.SteamOK {
		return &Error{Reason: "steam message absent"}
	}
	if len(e.PumpState) != numPumps {
		return &Error{Reason: "pump-state array length mismatch"}
	}
	if len(e.PumpControlState) != numPumps {
		return &Error{Reason: "pump-control-state array length mismatch"}
	}
	return nil
}

// Error is a transmission failure. It carries no recovery information:
// a transmission error is unconditionally fatal for the cycle.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "transmission failure: " + e.Reason
}

// Extract runs the classifier against an inbound batch and builds the
// Extracted view Validate and the fault detector both consume.
func Extract(c *classify.Classifier, numPumps int) Extracted {
	level, levelOK := c.ExtractUnique(classify.KindLevel)
	steam, steamOK := c.ExtractUnique(classify.KindSteam)
	return Extracted{
		Level:            level,
		LevelOK:          levelOK,
		Steam:            steam,
		SteamOK:          steamOK,
		PumpState:        c.ExtractAll(classify.KindPumpState),
		PumpControlState: c.ExtractAll(classify.KindPumpControlState),
	}
}
