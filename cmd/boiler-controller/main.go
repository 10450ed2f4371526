// Command boiler-controller runs the steam boiler mode controller against
// a Redis Streams mailbox, exposing a thin HTTP status surface and a
// WebSocket status feed alongside it.
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

	"github.com/redis/go-redis/v9"

	"github.com/holla2040/steamboiler/internal/api"
	"github.com/holla2040/steamboiler/internal/auditlog"
	"github.com/holla2040/steamboiler/internal/boilerconf"
	"github.com/holla2040/steamboiler/internal/controller"
	"github.com/holla2040/steamboiler/internal/ctlstate"
	"github.com/holla2040/steamboiler/internal/estop"
	"github.com/holla2040/steamboiler/internal/incident"
	"github.com/holla2040/steamboiler/internal/mailbox"
	"github.com/holla2040/steamboiler/internal/observe"
	"github.com/holla2040/steamboiler/internal/protocol"
	"github.com/holla2040/steamboiler/internal/redishealth"
	"github.com/holla2040/steamboiler/internal/registry"
	"github.com/holla2040/steamboiler/internal/statusfeed"
)

const serverVersion = "1.0.0"

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address")
	listenAddr := flag.String("listen", ":8002", "HTTP listen address")
	dbPath := flag.String("db", "boiler.db", "SQLite audit log path")
	configPath := flag.String("config", "boiler.yaml", "boiler characteristics YAML path")
	boilerID := flag.String("boiler-id", "boiler-01", "boiler instance identifier, used as the stream prefix")
	incidentDir := flag.String("incident-dir", "incidents", "directory for generated incident PDF reports")
	flag.Parse()

	source := protocol.Source{Service: "boiler_controller", Instance: *boilerID, Version: serverVersion}

	chars, err := boilerconf.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load boiler config at %s: %v", *configPath, err)
	}

	ctl, err := controller.New(chars)
	if err != nil {
		log.Fatalf("failed to create controller: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis at %s: %v", *redisAddr, err)
	}
	log.Printf("connected to Redis at %s", *redisAddr)

	auditLog, err := auditlog.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open audit log at %s: %v", *dbPath, err)
	}
	defer auditLog.Close()
	log.Printf("opened audit log at %s", *dbPath)

	if err := os.MkdirAll(*incidentDir, 0o755); err != nil {
		log.Fatalf("failed to create incident directory %s: %v", *incidentDir, err)
	}

	reg := registry.New()
	hub := statusfeed.NewHub()

	estopCoord := estop.New(func(state estop.State) {
		hub.BroadcastStatus(statusfeed.StatusEvent{Mode: ctlstate.EmergencyStop.String(), Failure: state.Reason})
		log.Printf("emergency stop triggered: reason=%s initiator=%s", state.Reason, state.Initiator)
	})

	streams := []string{"cycle:" + *boilerID + ":in", "cycle:" + *boilerID + ":out"}
	redisMon := redishealth.New(rdb, *boilerID, streams,
		redishealth.WithInterval(5*time.Second),
		redishealth.WithOnDown(func() {
			log.Println("Redis connection lost — cycle loop will stall until it recovers")
		}),
		redishealth.WithOnUp(func() {
			log.Println("Redis connection restored")
		}),
		redishealth.WithOnSustainedDown(30*time.Second, func(downFor time.Duration) {
			estopCoord.Trigger("MAILBOX_OUTAGE", fmt.Sprintf("redis mailbox unreachable for %v", downFor), "redishealth")
		}),
	)

	handler := &api.Handler{
		Controller:  ctl,
		Registry:    reg,
		Estop:       estopCoord,
		AuditLog:    auditLog,
		RedisHealth: redisMon,
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("GET /ws", hub.HandleWebSocket)

	server := &http.Server{Addr: *listenAddr, Handler: mux}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		redisMon.Run(ctx)
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
		runCycleLoop(ctx, ctl, rdb, source, *boilerID, reg, auditLog, estopCoord, hub, *incidentDir)
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	wg.Wait()
	log.Println("shutdown complete")
}

// runCycleLoop fetches one inbound batch per iteration and drives the
// controller's single entry point, then folds the cycle's side effects
// into the registry, audit log and e-stop coordinator.
func runCycleLoop(
	ctx context.Context,
	ctl *controller.Controller,
	rdb *redis.Client,
	source protocol.Source,
	boilerID string,
	reg *registry.Registry,
	auditLog *auditlog.AuditLog,
	estopCoord *estop.Coordinator,
	hub *statusfeed.Hub,
	incidentDir string,
) {
	mb := mailbox.NewRedis(ctx, rdb, source, "cycle:"+boilerID+":in", "cycle:"+boilerID+":out")

	lastID := "0"
	var cycleSeq int64

	for {
		if ctx.Err() != nil {
			return
		}

		id, err := mb.Fetch(lastID)
		if err != nil {
			log.Printf("cycle loop: fetch failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}
		lastID = id
		cycleSeq++

		prevMode := ctl.State().Mode
		ctl.Clock(mb, mb)
		state := ctl.State()

		inboundBatch := mb.InboundBatch()
		sentBatch := mb.SentBatch()

		observe.UpdateRegistry(reg, inboundBatch, sentBatch)
		if err := observe.RecordFaults(auditLog, cycleSeq, sentBatch); err != nil {
			log.Printf("cycle loop: record faults: %v", err)
		}
		if err := observe.RecordTransition(auditLog, estopCoord, cycleSeq, prevMode, state.Mode); err != nil {
			log.Printf("cycle loop: record transition: %v", err)
		}

		hub.BroadcastStatus(statusfeed.StatusEvent{
			CycleSeq: cycleSeq,
			Mode:     state.Mode.String(),
			Failure:  state.Failure.String(),
			Water:    state.WaterLevel,
			Steam:    state.SteamLevel,
			Active:   state.ActivePumps,
		})

		if state.Mode == ctlstate.EmergencyStop && prevMode != ctlstate.EmergencyStop {
			if err := writeIncidentReport(auditLog, cycleSeq, state, incidentDir); err != nil {
				log.Printf("cycle loop: incident report: %v", err)
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
