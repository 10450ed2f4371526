// Package classify defines the wire-level message shape the mode
// controller consumes and produces, and partitions an inbound batch by
// kind.
package classify

// Kind identifies a message's semantic type. Kinds ending in "_v" carry a
// float Value; kinds ending in "_n" carry an int Index; kinds ending in
// "_n_b" carry both an Index and a Flag; "MODE_m" carries a Mode name; all
// others carry no parameters.
type Kind string

// Kinds consumed from the plant.
const (
	KindLevel              Kind = "LEVEL_v"
	KindSteam              Kind = "STEAM_v"
	KindPumpState          Kind = "PUMP_STATE_n_b"
	KindPumpControlState   Kind = "PUMP_CONTROL_STATE_n_b"
	KindSteamBoilerWaiting Kind = "STEAM_BOILER_WAITING"
	KindPhysicalUnitsReady Kind = "PHYSICAL_UNITS_READY"
	KindPumpRepaired       Kind = "PUMP_REPAIRED_n"
	KindPumpRepairedAck    Kind = "PUMP_REPAIRED_ACKNOWLEDGEMENT_n"
	KindPumpControlAck     Kind = "PUMP_CONTROL_FAILURE_ACKNOWLEDGEMENT_n"
	KindSteamRepaired      Kind = "STEAM_REPAIRED"
	KindSteamOutcomeAck    Kind = "STEAM_OUTCOME_FAILURE_ACKNOWLEDGEMENT"
	KindLevelRepaired      Kind = "LEVEL_REPAIRED"
	KindLevelFailureAck    Kind = "LEVEL_FAILURE_ACKNOWLEDGEMENT"
)

// Kinds produced toward the plant.
const (
	KindMode                         Kind = "MODE_m"
	KindOpenPump                     Kind = "OPEN_PUMP_n"
	KindClosePump                    Kind = "CLOSE_PUMP_n"
	KindValve                        Kind = "VALVE"
	KindProgramReady                 Kind = "PROGRAM_READY"
	KindPumpFailureDetection         Kind = "PUMP_FAILURE_DETECTION_n"
	KindPumpControlFailureDetection  Kind = "PUMP_CONTROL_FAILURE_DETECTION_n"
	KindSteamFailureDetection        Kind = "STEAM_FAILURE_DETECTION"
	KindLevelFailureDetection        Kind = "LEVEL_FAILURE_DETECTION"
)

// Message is one entry of an inbound or outbound batch. Only the fields
// relevant to Kind are meaningful; see the Kind doc comment above.
type Message struct {
	Kind  Kind
	Index int
	Flag  bool
	Value float64
	Mode  string
}

// Level builds a LEVEL_v message.
func Level(v float64) Message { return Message{Kind: KindLevel, Value: v} }

// Steam builds a STEAM_v message.
func Steam(v float64) Message { return Message{Kind: KindSteam, Value: v} }

// PumpState builds a PUMP_STATE_n_b message for pump i.
func PumpState(i int, open bool) Message {
	return Message{Kind: KindPumpState, Index: i, Flag: open}
}

// PumpControlState builds a PUMP_CONTROL_STATE_n_b message for pump i.
func PumpControlState(i int, open bool) Message {
	return Message{Kind: KindPumpControlState, Index: i, Flag: open}
}

// Empty builds a parameterless message of the given kind.
func Empty(kind Kind) Message { return Message{Kind: kind} }

// Indexed builds an int-parameter message of the given kind for pump i.
func Indexed(kind Kind, i int) Message { return Message{Kind: kind, Index: i} }

// ModeMsg builds a MODE_m message carrying the given mode name.
func ModeMsg(mode string) Message { return Message{Kind: KindMode, Mode: mode} }

// AllKinds lists every kind the protocol carries, consumed or produced.
// internal/protocol uses it to validate an envelope's Type field.
var AllKinds = []Kind{
	KindLevel, KindSteam, KindPumpState, KindPumpControlState,
	KindSteamBoilerWaiting, KindPhysicalUnitsReady,
	KindPumpRepaired, KindPumpRepairedAck, KindPumpControlAck,
	KindSteamRepaired, KindSteamOutcomeAck, KindLevelRepaired, KindLevelFailureAck,
	KindMode, KindOpenPump, KindClosePump, KindValve, KindProgramReady,
	KindPumpFailureDetection, KindPumpControlFailureDetection,
	KindSteamFailureDetection, KindLevelFailureDetection,
}

// Classifier partitions a single cycle's inbound batch by kind.
type Classifier struct {
	batch []Message
}

// New wraps an inbound batch for classification. The batch is never
// reordered or copied beyond what Go's slice semantics already give.
func New(batch []Message) *Classifier {
	return &Classifier{batch: batch}
}

// ExtractUnique returns the sole message of kind if exactly one exists in
// the batch. Both "none" and "more than one" are reported as absent
// (ok == false); callers distinguish by context.
func (c *Classifier) ExtractUnique(kind Kind) (Message, bool) {
	var found Message
	count := 0
	for _, m := range c.batch {
		if m.Kind == kind {
			found = m
			count++
		}
	}
	if count != 1 {
		return Message{}, false
	}
	return found, true
}

// ExtractAll returns every message of kind, preserving batch order.
func (c *Classifier) ExtractAll(kind Kind) []Message {
	var out []Message
	for _, m := range c.batch {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

