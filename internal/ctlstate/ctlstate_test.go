package ctlstate

import "testing"

func validChars() BoilerCharacteristics {
	return BoilerCharacteristics{
		Capacity:         1000,
		MinimalLimit:     50,
		MaximalLimit:     800,
		MinimalNormal:    200,
		MaximalNormal:    600,
		MaximalSteamRate: 5,
		PumpCapacity:     []float64{10, 10},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if err := validChars().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadEnvelope(t *testing.T) {
	b := validChars()
	b.MaximalNormal = 900 // breaks N_max < L_max
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
}

func TestValidateRejectsZeroPumps(t *testing.T) {
	b := validChars()
	b.PumpCapacity = nil
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for zero pumps")
	}
}

func TestValidateRejectsCapacityNotExceedingLimit(t *testing.T) {
	b := validChars()
	b.Capacity = 800
	if err := b.Validate(); err == nil {
		t.Fatal("expected error when capacity does not exceed L_max")
	}
}

func TestNormalMid(t *testing.T) {
	b := validChars()
	if got := b.NormalMid(); got != 400 {
		t.Fatalf("expected N_mid=400, got %v", got)
	}
}

func TestNewStateZeroedInWaiting(t *testing.T) {
	s := New(2)
	if s.Mode != Waiting {
		t.Fatalf("expected WAITING, got %v", s.Mode)
	}
	if s.Failure != NoFailure {
		t.Fatalf("expected NONE, got %v", s.Failure)
	}
	if len(s.PumpOpen) != 2 {
		t.Fatalf("expected 2 pumps, got %d", len(s.PumpOpen))
	}
	if s.ActivePumps != 0 {
		t.Fatalf("expected 0 active pumps, got %d", s.ActivePumps)
	}
}

// I1: active_pumps always matches popcount(pump_open).
func TestSetPumpOpenMaintainsActivePumpsInvariant(t *testing.T) {
	s := New(3)
	s.SetPumpOpen(0, true)
	s.SetPumpOpen(2, true)
	if s.ActivePumps != 2 {
		t.Fatalf("expected active_pumps=2, got %d", s.ActivePumps)
	}
	s.SetPumpOpen(0, false)
	if s.ActivePumps != 1 {
		t.Fatalf("expected active_pumps=1, got %d", s.ActivePumps)
	}
	if err := s.CheckInvariants(validChars()); err != nil {
		t.Fatalf("unexpected invariant violation: %v", err)
	}
}

func TestCheckInvariantsCatchesNormalModeWithFailure(t *testing.T) {
	s := New(2)
	s.Mode = Normal
	s.Failure = PumpState
	s.WaterLevel = 400
	if err := s.CheckInvariants(validChars()); err == nil {
		t.Fatal("expected I2 violation")
	}
}

func TestCheckInvariantsCatchesNormalModeOutOfLimitEnvelope(t *testing.T) {
	s := New(2)
	s.Mode = Normal
	s.WaterLevel = 10
	if err := s.CheckInvariants(validChars()); err == nil {
		t.Fatal("expected I2 violation for out-of-envelope level")
	}
}
