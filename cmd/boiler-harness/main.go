// Command boiler-harness runs the mode controller against an in-process
// physical plant simulator instead of a live plant. It is meant for
// local demos and integration tests: no Redis dependency, a single
// ticking goroutine driving both the controller and the simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/holla2040/steamboiler/internal/api"
	"github.com/holla2040/steamboiler/internal/auditlog"
	"github.com/holla2040/steamboiler/internal/boilerconf"
	"github.com/holla2040/steamboiler/internal/controller"
	"github.com/holla2040/steamboiler/internal/ctlstate"
	"github.com/holla2040/steamboiler/internal/estop"
	"github.com/holla2040/steamboiler/internal/incident"
	"github.com/holla2040/steamboiler/internal/mailbox"
	"github.com/holla2040/steamboiler/internal/observe"
	"github.com/holla2040/steamboiler/internal/plantsim"
	"github.com/holla2040/steamboiler/internal/registry"
	"github.com/holla2040/steamboiler/internal/statusfeed"
)

func main() {
	listenAddr := flag.String("listen", ":8003", "HTTP listen address")
	dbPath := flag.String("db", ":memory:", "SQLite audit log path")
	configPath := flag.String("config", "boiler.yaml", "boiler characteristics YAML path")
	failRate := flag.Float64("fail-rate", 0, "per-pump, per-cycle probability a commanded pump open/close silently fails")
	incidentDir := flag.String("incident-dir", "incidents", "directory for generated incident PDF reports")
	flag.Parse()

	chars, err := boilerconf.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load boiler config at %s: %v", *configPath, err)
	}

	ctl, err := controller.New(chars)
	if err != nil {
		log.Fatalf("failed to create controller: %v", err)
	}

	auditLog, err := auditlog.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open audit log at %s: %v", *dbPath, err)
	}
	defer auditLog.Close()

	if err := os.MkdirAll(*incidentDir, 0o755); err != nil {
		log.Fatalf("failed to create incident directory %s: %v", *incidentDir, err)
	}

	plant := plantsim.NewPlant(chars.PumpCapacity, *failRate)
	reg := registry.New()
	hub := statusfeed.NewHub()

	estopCoord := estop.New(func(state estop.State) {
		hub.BroadcastStatus(statusfeed.StatusEvent{Mode: ctlstate.EmergencyStop.String(), Failure: state.Reason})
		log.Printf("emergency stop triggered: reason=%s initiator=%s", state.Reason, state.Initiator)
	})

	handler := &api.Handler{
		Controller: ctl,
		Registry:   reg,
		Estop:      estopCoord,
		AuditLog:   auditLog,
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("GET /ws", hub.HandleWebSocket)

	server := &http.Server{Addr: *listenAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP server listening on %s", *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSimulationLoop(ctx, ctl, plant, reg, auditLog, estopCoord, hub, *incidentDir)
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	wg.Wait()
	log.Println("shutdown complete")
}

// runSimulationLoop ticks once every ctlstate.Cycle seconds: it feeds the
// plant's current readings to the controller, applies the controller's
// resulting commanded state back to the plant, and folds the cycle's side
// effects into the registry, audit log and e-stop coordinator.
func runSimulationLoop(
	ctx context.Context,
	ctl *controller.Controller,
	plant *plantsim.Plant,
	reg *registry.Registry,
	auditLog *auditlog.AuditLog,
	estopCoord *estop.Coordinator,
	hub *statusfeed.Hub,
	incidentDir string,
) {
	ticker := time.NewTicker(ctlstate.Cycle * time.Second)
	defer ticker.Stop()

	mb := mailbox.NewMemory(plant.Snapshot().Batch())
	var cycleSeq int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycleSeq++
			inboundBatch := plant.Snapshot().Batch()
			mb.Next(inboundBatch)

			prevMode := ctl.State().Mode
			ctl.Clock(mb, mb)
			state := ctl.State()

			plant.HandleCycle(state.PumpOpen, state.ValveOpen)

			observe.UpdateRegistry(reg, inboundBatch, mb.Sent)
			if err := observe.RecordFaults(auditLog, cycleSeq, mb.Sent); err != nil {
				log.Printf("simulation loop: record faults: %v", err)
			}
			if err := observe.RecordTransition(auditLog, estopCoord, cycleSeq, prevMode, state.Mode); err != nil {
				log.Printf("simulation loop: record transition: %v", err)
			}

			hub.BroadcastStatus(statusfeed.StatusEvent{
				CycleSeq: cycleSeq,
				Mode:     state.Mode.String(),
				Failure:  state.Failure.String(),
				Water:    state.WaterLevel,
				Steam:    state.SteamLevel,
				Active:   state.ActivePumps,
			})
			log.Printf("cycle=%d mode=%s water=%.1f steam=%.1f active_pumps=%d",
				cycleSeq, state.Mode, state.WaterLevel, state.SteamLevel, state.ActivePumps)

			if state.Mode == ctlstate.EmergencyStop && prevMode != ctlstate.EmergencyStop {
				if err := writeIncidentReport(auditLog, cycleSeq, state, incidentDir); err != nil {
					log.Printf("simulation loop: incident report: %v", err)
				}
			}
		}
	}
}

func writeIncidentReport(auditLog *auditlog.AuditLog, cycleSeq int64, state ctlstate.ControllerState, dir string) error {
	report, err := incident.Build(auditLog, cycleSeq, state, 20)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("incident-%d.pdf", cycleSeq))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := incident.GeneratePDF(f, report); err != nil {
		return fmt.Errorf("generate pdf: %w", err)
	}
	log.Printf("incident report written to %s", path)
	return nil
}
