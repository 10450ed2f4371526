package predict

import (
	"testing"

	"github.com/holla2040/steamboiler/internal/ctlstate"
)

const Cycle = ctlstate.Cycle

func TestPredictZeroPumps(t *testing.T) {
	out := Predict(400, 3, 5, []float64{10, 10})
	if len(out) != 3 {
		t.Fatalf("expected 3 estimates (k=0..2), got %d", len(out))
	}
	e0 := out[0]
	wantHi := 400 - Cycle*3.0
	wantLo := 400 - Cycle*5.0
	if e0.Hi != wantHi || e0.Lo != wantLo {
		t.Fatalf("k=0: expected hi=%v lo=%v, got hi=%v lo=%v", wantHi, wantLo, e0.Hi, e0.Lo)
	}
	if e0.Mid != (wantHi+wantLo)/2 {
		t.Fatalf("k=0: expected mid=%v, got %v", (wantHi+wantLo)/2, e0.Mid)
	}
}

func TestPredictLastPumpCapacityCharging(t *testing.T) {
	// Heterogeneous capacities: pump contribution at k must be charged at
	// cap[k-1]*k, the deliberate simplification from spec §4.4/§9 OQ1.
	out := Predict(400, 3, 5, []float64{10, 20})
	e2 := out[2]
	pumped := Cycle * 20 * 2 // cap[1]*2, not cap[0]+cap[1]
	wantHi := 400 + pumped - Cycle*3.0
	wantLo := 400 + pumped - Cycle*5.0
	if e2.Hi != wantHi || e2.Lo != wantLo {
		t.Fatalf("k=2: expected hi=%v lo=%v, got hi=%v lo=%v", wantHi, wantLo, e2.Hi, e2.Lo)
	}
}

func TestPredictPumpCountsInOrder(t *testing.T) {
	out := Predict(400, 3, 5, []float64{10, 10, 10})
	for k, e := range out {
		if e.PumpCount != k {
			t.Fatalf("index %d: expected PumpCount=%d, got %d", k, k, e.PumpCount)
		}
	}
}
