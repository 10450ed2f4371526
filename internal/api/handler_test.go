package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/holla2040/steamboiler/internal/auditlog"
	"github.com/holla2040/steamboiler/internal/controller"
	"github.com/holla2040/steamboiler/internal/ctlstate"
	"github.com/holla2040/steamboiler/internal/estop"
	"github.com/holla2040/steamboiler/internal/registry"
)

func testChars() ctlstate.BoilerCharacteristics {
	return ctlstate.BoilerCharacteristics{
		Capacity:         1000,
		MinimalLimit:     50,
		MaximalLimit:     800,
		MinimalNormal:    200,
		MaximalNormal:    600,
		MaximalSteamRate: 5,
		PumpCapacity:     []float64{10, 10},
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	ctl, err := controller.New(testChars())
	if err != nil {
		t.Fatalf("controller.New failed: %v", err)
	}
	log, err := auditlog.Open(":memory:")
	if err != nil {
		t.Fatalf("auditlog.Open failed: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	return &Handler{
		Controller: ctl,
		Registry:   registry.New(),
		Estop:      estop.New(nil),
		AuditLog:   log,
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetStatusReturnsCurrentState(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Mode == "" {
		t.Error("expected non-empty mode")
	}
	if got.Estop.Active {
		t.Error("expected estop inactive by default")
	}
}

func TestGetCyclesReturnsRecordedTransitions(t *testing.T) {
	h := newTestHandler(t)
	if err := h.AuditLog.RecordModeTransition(1, "WAITING", "READY"); err != nil {
		t.Fatalf("RecordModeTransition failed: %v", err)
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/cycles")
	if err != nil {
		t.Fatalf("GET /cycles failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got []auditlog.ModeTransition
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(got))
	}
	if got[0].From != "WAITING" || got[0].To != "READY" {
		t.Errorf("unexpected transition: %+v", got[0])
	}
}

func TestGetFaultsReturnsRecordedFaults(t *testing.T) {
	h := newTestHandler(t)
	if err := h.AuditLog.RecordFault(3, "WATER_LEVEL", 1); err != nil {
		t.Fatalf("RecordFault failed: %v", err)
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/faults")
	if err != nil {
		t.Fatalf("GET /faults failed: %v", err)
	}
	defer resp.Body.Close()

	var got []auditlog.FaultRecord
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 1 || got[0].Failure != "WATER_LEVEL" {
		t.Fatalf("unexpected faults: %+v", got)
	}
}

func TestGetPumpsReturnsRegistryEntries(t *testing.T) {
	h := newTestHandler(t)
	h.Registry.Update(0, true, false, false)
	h.Registry.Update(1, false, true, false)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/pumps")
	if err != nil {
		t.Fatalf("GET /pumps failed: %v", err)
	}
	defer resp.Body.Close()

	var got []*registry.Entry
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pumps, got %d", len(got))
	}
}

func TestGetPumpReturnsSingleEntry(t *testing.T) {
	h := newTestHandler(t)
	h.Registry.Update(5, true, false, false)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/pumps/5")
	if err != nil {
		t.Fatalf("GET /pumps/5 failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got registry.Entry
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Index != 5 {
		t.Errorf("expected index 5, got %d", got.Index)
	}
}

func TestGetPumpUnknownReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/pumps/99")
	if err != nil {
		t.Fatalf("GET /pumps/99 failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetPumpInvalidIndexReturnsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/pumps/not-a-number")
	if err != nil {
		t.Fatalf("GET /pumps/not-a-number failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPostEstopActivatesCoordinator(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	body, _ := json.Marshal(estop.Request{
		Reason:      "WATER_LEVEL",
		Description: "drum level below minimal limit",
		Initiator:   "operator",
	})

	resp, err := http.Post(srv.URL+"/estop", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /estop failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got estop.State
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !got.Active {
		t.Error("expected estop active after trigger")
	}
	if !h.Estop.GetState().Active {
		t.Error("expected coordinator state to reflect trigger")
	}
}

func TestGetRedisHealthWithNoCheckerReportsDisconnected(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/redis")
	if err != nil {
		t.Fatalf("GET /redis failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got struct {
		Connected bool `json:"connected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Connected {
		t.Error("expected disconnected status with no checker wired")
	}
}

func TestPostEstopInvalidBodyReturnsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/estop", "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("POST /estop failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
