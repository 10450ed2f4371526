// Package auditlog records mode transitions, fault detections, and
// per-cycle selector decisions to an embedded SQLite database for
// post-incident analysis. It is a write-side audit trail only: the
// controller never reads it back on startup and always boots into
// WAITING with zeroed state.
package auditlog

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// ModeTransition records one cycle's mode change.
type ModeTransition struct {
	ID        int64
	CycleSeq  int64
	From      string
	To        string
	Timestamp time.Time
}

// FaultRecord records one cycle's fault classification.
type FaultRecord struct {
	ID        int64
	CycleSeq  int64
	Failure   string
	PumpIndex int
	Timestamp time.Time
}

// SelectorDecision records one cycle's pump-count selection.
type SelectorDecision struct {
	ID            int64
	CycleSeq      int64
	SelectedPumps int
	PredictedMid  float64
	Timestamp     time.Time
}

// AuditLog wraps a SQLite database holding the three tables above.
type AuditLog struct {
	db *sql.DB
}

// Open creates or opens the audit database at dbPath (":memory:" for
// tests) and ensures its schema exists.
func Open(dbPath string) (*AuditLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite requires single-connection mode for :memory: databases
	// (each pool connection gets its own in-memory DB otherwise).
	db.SetMaxOpenConns(1)

	schema := `
CREATE TABLE IF NOT EXISTS mode_transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_seq INTEGER NOT NULL,
    from_mode TEXT NOT NULL,
    to_mode TEXT NOT NULL,
    timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS faults (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_seq INTEGER NOT NULL,
    failure TEXT NOT NULL,
    pump_index INTEGER NOT NULL DEFAULT -1,
    timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS selector_decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_seq INTEGER NOT NULL,
    selected_pumps INTEGER NOT NULL,
    predicted_mid REAL NOT NULL,
    timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mode_transitions_cycle ON mode_transitions(cycle_seq);
CREATE INDEX IF NOT EXISTS idx_faults_cycle ON faults(cycle_seq);
CREATE INDEX IF NOT EXISTS idx_selector_decisions_cycle ON selector_decisions(cycle_seq);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &AuditLog{db: db}, nil
}

// Close closes the underlying database.
func (a *AuditLog) Close() error {
	return a.db.Close()
}

// RecordModeTransition appends a mode-change row.
func (a *AuditLog) RecordModeTransition(cycleSeq int64, from, to string) error {
	_, err := a.db.Exec(
		`INSERT INTO mode_transitions (cycle_seq, from_mode, to_mode, timestamp) VALUES (?, ?, ?, ?)`,
		cycleSeq, from, to, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecordFault appends a fault-classification row. pumpIndex is -1 for
// failures not attributable to a single pump (steam, water level).
func (a *AuditLog) RecordFault(cycleSeq int64, failure string, pumpIndex int) error {
	_, err := a.db.Exec(
		`INSERT INTO faults (cycle_seq, failure, pump_index, timestamp) VALUES (?, ?, ?, ?)`,
		cycleSeq, failure, pumpIndex, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecordSelectorDecision appends a pump-count selection row.
func (a *AuditLog) RecordSelectorDecision(cycleSeq int64, selectedPumps int, predictedMid float64) error {
	_, err := a.db.Exec(
		`INSERT INTO selector_decisions (cycle_seq, selected_pumps, predicted_mid, timestamp) VALUES (?, ?, ?, ?)`,
		cycleSeq, selectedPumps, predictedMid, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// QueryModeTransitions returns the most recent limit mode transitions,
// newest first.
func (a *AuditLog) QueryModeTransitions(limit int) ([]ModeTransition, error) {
	rows, err := a.db.Query(
		`SELECT id, cycle_seq, from_mode, to_mode, timestamp FROM mode_transitions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transitions := []ModeTransition{}
	for rows.Next() {
		var m ModeTransition
		var ts string
		if err := rows.Scan(&m.ID, &m.CycleSeq, &m.From, &m.To, &ts); err != nil {
			return nil, err
		}
		m.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, m)
	}
	return transitions, rows.Err()
}

// QueryFaults returns the most recent limit fault records, newest first.
func (a *AuditLog) QueryFaults(limit int) ([]FaultRecord, error) {
	rows, err := a.db.Query(
		`SELECT id, cycle_seq, failure, pump_index, timestamp FROM faults ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	faults := []FaultRecord{}
	for rows.Next() {
		var f FaultRecord
		var ts string
		if err := rows.Scan(&f.ID, &f.CycleSeq, &f.Failure, &f.PumpIndex, &ts); err != nil {
			return nil, err
		}
		f.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		faults = append(faults, f)
	}
	return faults, rows.Err()
}

// QuerySelectorDecisions returns the most recent limit selector
// decisions, newest first.
func (a *AuditLog) QuerySelectorDecisions(limit int) ([]SelectorDecision, error) {
	rows, err := a.db.Query(
		`SELECT id, cycle_seq, selected_pumps, predicted_mid, timestamp FROM selector_decisions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	decisions := []SelectorDecision{}
	for rows.Next() {
		var d SelectorDecision
		var ts string
		if err := rows.Scan(&d.ID, &d.CycleSeq, &d.SelectedPumps, &d.PredictedMid, &ts); err != nil {
			return nil, err
		}
		d.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
