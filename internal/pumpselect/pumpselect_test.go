package pumpselect

import (
	"testing"

	"github.com/holla2040/steamboiler/internal/predict"
)

func TestSelectPicksClosestMid(t *testing.T) {
	estimates := []predict.Estimate{
		{PumpCount: 0, Mid: 380},
		{PumpCount: 1, Mid: 430},
		{PumpCount: 2, Mid: 480},
	}
	if got := Select(estimates, 400); got != 0 {
		t.Fatalf("expected k=0 (distance 20 vs 30,80), got %d", got)
	}
}

func TestSelectTiesBreakToSmallestK(t *testing.T) {
	estimates := []predict.Estimate{
		{PumpCount: 0, Mid: 390},
		{PumpCount: 1, Mid: 410},
	}
	if got := Select(estimates, 400); got != 0 {
		t.Fatalf("expected tie broken to k=0, got %d", got)
	}
}

func TestDeltaOpensPumpsToReachTarget(t *testing.T) {
	pumpOpen := []bool{false, false}
	feedback := []bool{false, false}
	msgs, active := Delta(pumpOpen, 0, 2, feedback)
	if active != 2 {
		t.Fatalf("expected active_pumps=2, got %d", active)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 OPEN_PUMP messages, got %d", len(msgs))
	}
	if !pumpOpen[0] || !pumpOpen[1] {
		t.Fatalf("expected both pumps open, got %+v", pumpOpen)
	}
}

func TestDeltaClosesPumpsToReachTarget(t *testing.T) {
	pumpOpen := []bool{true, true}
	feedback := []bool{true, true}
	msgs, active := Delta(pumpOpen, 2, 1, feedback)
	if active != 1 {
		t.Fatalf("expected active_pumps=1, got %d", active)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 CLOSE_PUMP message, got %d", len(msgs))
	}
	if pumpOpen[0] {
		t.Fatalf("expected pump 0 closed first, got %+v", pumpOpen)
	}
}

func TestDeltaNoOpWhenTargetMatchesActive(t *testing.T) {
	pumpOpen := []bool{true, false}
	feedback := []bool{true, false}
	msgs, active := Delta(pumpOpen, 1, 1, feedback)
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %+v", msgs)
	}
	if active != 1 {
		t.Fatalf("expected active_pumps unchanged at 1, got %d", active)
	}
}

func TestDeltaSkipsPumpsWithStaleFeedback(t *testing.T) {
	// Pump 0's control feedback still reports open, so the selector must
	// route the open command to pump 1 instead of double-opening pump 0.
	pumpOpen := []bool{false, false}
	feedback := []bool{true, false}
	msgs, active := Delta(pumpOpen, 0, 1, feedback)
	if active != 1 {
		t.Fatalf("expected active_pumps=1, got %d", active)
	}
	if len(msgs) != 1 || msgs[0].Index != 1 {
		t.Fatalf("expected OPEN_PUMP(1), got %+v", msgs)
	}
}
