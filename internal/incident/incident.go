// Package incident generates a PDF report summarizing an
// EMERGENCY_STOP transition, for a human to attach to an incident
// ticket: mode history, fault history, and the reading summary pulled
// from the audit log.
package incident

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/holla2040/steamboiler/internal/auditlog"
	"github.com/holla2040/steamboiler/internal/ctlstate"
)

// Report is the data behind one incident PDF.
type Report struct {
	GeneratedAt time.Time
	CycleSeq    int64
	State       ctlstate.ControllerState
	Transitions []auditlog.ModeTransition
	Faults      []auditlog.FaultRecord
}

// Build assembles a Report from the audit log's most recent history and
// the controller's state at the moment of EMERGENCY_STOP. historyLimit
// bounds how many prior mode transitions and faults are included.
func Build(log *auditlog.AuditLog, cycleSeq int64, state ctlstate.ControllerState, historyLimit int) (*Report, error) {
	transitions, err := log.QueryModeTransitions(historyLimit)
	if err != nil {
		return nil, fmt.Errorf("incident: query mode transitions: %w", err)
	}
	faults, err := log.QueryFaults(historyLimit)
	if err != nil {
		return nil, fmt.Errorf("incident: query faults: %w", err)
	}
	return &Report{
		GeneratedAt: time.Now().UTC(),
		CycleSeq:    cycleSeq,
		State:       state,
		Transitions: transitions,
		Faults:      faults,
	}, nil
}

// GeneratePDF renders the report as a PDF. Automatic page breaks are on,
// so long mode or fault histories continue onto further pages.
func GeneratePDF(w io.Writer, r *Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Emergency Stop Incident Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	info := []struct{ label, value string }{
		{"Generated", r.GeneratedAt.Format(time.RFC3339)},
		{"Cycle", fmt.Sprintf("%d", r.CycleSeq)},
		{"Mode", r.State.Mode.String()},
		{"Failure", r.State.Failure.String()},
		{"Failed Pump", fmt.Sprintf("%d", r.State.FailedPump)},
		{"Water Level", fmt.Sprintf("%.2f (prev %.2f)", r.State.WaterLevel, r.State.PrevWaterLevel)},
		{"Steam Level", fmt.Sprintf("%.2f (prev %.2f)", r.State.SteamLevel, r.State.PrevSteamLevel)},
		{"Active Pumps", fmt.Sprintf("%d", r.State.ActivePumps)},
		{"Valve Open", fmt.Sprintf("%t", r.State.ValveOpen)},
	}
	for _, item := range info {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 7, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, item.value, "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pump := "open: "
	for i, open := range r.State.PumpOpen {
		if open {
			pump += fmt.Sprintf("%d ", i)
		}
	}
	pdf.CellFormat(0, 7, "Pump set ("+pump+")", "", 1, "L", false, 0, "")

	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Mode History", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	if len(r.Transitions) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, "No mode transitions recorded.", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(25, 7, "Cycle", "1", 0, "L", true, 0, "")
		pdf.CellFormat(35, 7, "From", "1", 0, "L", true, 0, "")
		pdf.CellFormat(35, 7, "To", "1", 0, "L", true, 0, "")
		pdf.CellFormat(0, 7, "Timestamp", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, t := range r.Transitions {
			pdf.CellFormat(25, 7, fmt.Sprintf("%d", t.CycleSeq), "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 7, t.From, "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 7, t.To, "1", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, t.Timestamp.Format(time.RFC3339), "1", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Fault History", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	if len(r.Faults) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, "No faults recorded.", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(25, 7, "Cycle", "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 7, "Failure", "1", 0, "L", true, 0, "")
		pdf.CellFormat(20, 7, "Pump", "1", 0, "C", true, 0, "")
		pdf.CellFormat(0, 7, "Timestamp", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, f := range r.Faults {
			pumpCol := "-"
			if f.PumpIndex >= 0 {
				pumpCol = fmt.Sprintf("%d", f.PumpIndex)
			}
			pdf.CellFormat(25, 7, fmt.Sprintf("%d", f.CycleSeq), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 7, f.Failure, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 7, pumpCol, "1", 0, "C", false, 0, "")
			pdf.CellFormat(0, 7, f.Timestamp.Format(time.RFC3339), "1", 1, "L", false, 0, "")
		}
	}

	return pdf.Output(w)
}
