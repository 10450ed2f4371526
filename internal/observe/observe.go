// Package observe wires the read-side surfaces — registry, audit log and
// e-stop coordinator — into one cycle's inbound and outbound batches. It
// sits in the composition root's shoes: the controller itself never
// imports any of these, per their own package docs.
package observe

import (
	"github.com/holla2040/steamboiler/internal/auditlog"
	"github.com/holla2040/steamboiler/internal/classify"
	"github.com/holla2040/steamboiler/internal/ctlstate"
	"github.com/holla2040/steamboiler/internal/estop"
	"github.com/holla2040/steamboiler/internal/registry"
)

// UpdateRegistry folds one cycle's inbound feedback and outbound fault
// detections into the pump registry.
func UpdateRegistry(reg *registry.Registry, inbound, outbound []classify.Message) {
	feedback := make(map[int]bool)
	control := make(map[int]bool)
	faulted := make(map[int]bool)

	for _, m := range inbound {
		switch m.Kind {
		case classify.KindPumpState:
			feedback[m.Index] = m.Flag
		case classify.KindPumpControlState:
			control[m.Index] = m.Flag
		}
	}
	for _, m := range outbound {
		if m.Kind == classify.KindPumpFailureDetection || m.Kind == classify.KindPumpControlFailureDetection {
			faulted[m.Index] = true
		}
	}

	for i, fb := range feedback {
		reg.Update(i, fb, fb != control[i], faulted[i])
	}
}

// RecordTransition appends a mode-transition row to the audit log when
// from and to differ, and triggers the e-stop coordinator on entry into
// EMERGENCY_STOP.
func RecordTransition(log *auditlog.AuditLog, coord *estop.Coordinator, cycleSeq int64, from, to ctlstate.Mode) error {
	if from == to {
		return nil
	}
	if err := log.RecordModeTransition(cycleSeq, from.String(), to.String()); err != nil {
		return err
	}
	if to == ctlstate.EmergencyStop {
		coord.Trigger("CONTROLLER_TRANSITION", "controller entered EMERGENCY_STOP", "controller")
	}
	return nil
}

// RecordFaults appends one audit row per fault-detection message in an
// outbound batch.
func RecordFaults(log *auditlog.AuditLog, cycleSeq int64, outbound []classify.Message) error {
	for _, m := range outbound {
		switch m.Kind {
		case classify.KindPumpFailureDetection, classify.KindPumpControlFailureDetection:
			if err := log.RecordFault(cycleSeq, string(m.Kind), m.Index); err != nil {
				return err
			}
		case classify.KindSteamFailureDetection, classify.KindLevelFailureDetection:
			if err := log.RecordFault(cycleSeq, string(m.Kind), -1); err != nil {
				return err
			}
		}
	}
	return nil
}
