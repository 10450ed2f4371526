// Package api exposes a thin HTTP status surface over the controller:
// current mode/readings, recent cycle history from the audit log, and
// per-pump registry data. It never drives the control loop itself; the
// only command surface it exposes is triggering an e-stop.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/holla2040/steamboiler/internal/auditlog"
	"github.com/holla2040/steamboiler/internal/controller"
	"github.com/holla2040/steamboiler/internal/estop"
	"github.com/holla2040/steamboiler/internal/redishealth"
	"github.com/holla2040/steamboiler/internal/registry"
)

const defaultCycleLimit = 50

// statusResponse is the response for GET /status.
type statusResponse struct {
	Mode        string      `json:"mode"`
	Failure     string      `json:"failure"`
	WaterLevel  float64     `json:"water_level"`
	SteamLevel  float64     `json:"steam_level"`
	ActivePumps int         `json:"active_pumps"`
	ValveOpen   bool        `json:"valve_open"`
	Estop       estop.State `json:"estop"`
}

// RedisHealthChecker reports the mailbox's Redis connection state. Nil is
// valid: GetStatus is only ever invoked after a nil check so embedders
// without a live Redis monitor can still use this handler.
type RedisHealthChecker interface {
	GetStatus() redishealth.Status
}

// Handler holds all dependencies for HTTP request handling.
type Handler struct {
	Controller  *controller.Controller
	Registry    *registry.Registry
	Estop       *estop.Coordinator
	AuditLog    *auditlog.AuditLog
	RedisHealth RedisHealthChecker
}

// RegisterRoutes adds every route to the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /status", h.getStatus)
	mux.HandleFunc("GET /cycles", h.getCycles)
	mux.HandleFunc("GET /faults", h.getFaults)
	mux.HandleFunc("GET /pumps", h.getPumps)
	mux.HandleFunc("GET /pumps/{index}", h.getPump)
	mux.HandleFunc("POST /estop", h.postEstop)
	mux.HandleFunc("GET /redis", h.getRedisHealth)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	state := h.Controller.State()
	resp := statusResponse{
		Mode:        state.Mode.String(),
		Failure:     state.Failure.String(),
		WaterLevel:  state.WaterLevel,
		SteamLevel:  state.SteamLevel,
		ActivePumps: state.ActivePumps,
		ValveOpen:   state.ValveOpen,
		Estop:       h.Estop.GetState(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getCycles(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultCycleLimit)
	transitions, err := h.AuditLog.QueryModeTransitions(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, transitions)
}

func (h *Handler) getFaults(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultCycleLimit)
	faults, err := h.AuditLog.QueryFaults(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, faults)
}

func (h *Handler) getPumps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.ListPumps())
}

func (h *Handler) getPump(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pump index"})
		return
	}
	entry := h.Registry.LookupPump(index)
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "pump not found"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) postEstop(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	if err := h.Estop.HandleMessage(body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.Estop.GetState())
}

func (h *Handler) getRedisHealth(w http.ResponseWriter, r *http.Request) {
	if h.RedisHealth == nil {
		writeJSON(w, http.StatusOK, redishealth.Status{Connected: false})
		return
	}
	writeJSON(w, http.StatusOK, h.RedisHealth.GetStatus())
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
