package redishealth

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status represents the current Redis connection state for one boiler's
// mailbox streams.
type Status struct {
	BoilerID   string    `json:"boiler_id,omitempty"`
	Streams    []string  `json:"streams,omitempty"`
	Connected  bool      `json:"connected"`
	LastPingOK time.Time `json:"last_ping_ok,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Reconnects int       `json:"reconnects"`
	Latency    string    `json:"latency,omitempty"`
	DownFor    string    `json:"down_for,omitempty"`
}

// Monitor performs periodic ping-based health checks on the Redis client
// backing a boiler's inbound/outbound mailbox streams, and tracks
// connection state. It supports automatic reconnection with exponential
// backoff. A cycle loop reading from a down stream just blocks on Fetch
// and never even reaches the controller's transmission validator, so
// Monitor also reports how long the connection has been down; the
// composition root escalates a sustained outage to the e-stop
// coordinator once it exceeds a threshold the transmission validator
// itself has no way to observe.
type Monitor struct {
	rdb      *redis.Client
	boilerID string
	streams  []string
	interval time.Duration

	mu         sync.RWMutex
	connected  bool
	lastPing   time.Time
	downSince  time.Time
	lastErr    string
	reconnects int
	latency    time.Duration

	// callbacks
	onDown         func()
	onUp           func()
	onSustainedFn  func(time.Duration)
	sustainedAfter time.Duration
	sustainedFired bool
}

// Option configures the Monitor.
type Option func(*Monitor)

// WithInterval sets the health check interval (default 5s).
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		m.interval = d
	}
}

// WithOnDown is called when the connection transitions from up to down.
func WithOnDown(fn func()) Option {
	return func(m *Monitor) {
		m.onDown = fn
	}
}

// WithOnUp is called when the connection transitions from down to up.
func WithOnUp(fn func()) Option {
	return func(m *Monitor) {
		m.onUp = fn
	}
}

// WithOnSustainedDown arranges for fn to be called, once, with the
// elapsed outage duration the first time a continuous outage exceeds
// after. It fires again on any later outage that again exceeds the
// threshold. Intended for escalating a prolonged mailbox outage to an
// operator-facing emergency stop, since the boiler's cycle loop cannot
// progress far enough to detect the outage on its own.
func WithOnSustainedDown(after time.Duration, fn func(time.Duration)) Option {
	return func(m *Monitor) {
		m.sustainedAfter = after
		m.onSustainedFn = fn
	}
}

// New creates a health monitor for the Redis connection backing the
// given boiler's mailbox streams (conventionally "cycle:<id>:in" and
// "cycle:<id>:out").
func New(rdb *redis.Client, boilerID string, streams []string, opts ...Option) *Monitor {
	m := &Monitor{
		rdb:       rdb,
		boilerID:  boilerID,
		streams:   append([]string(nil), streams...),
		interval:  5 * time.Second,
		connected: true, // assume connected at start
		lastPing:  time.Now(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Run starts the health check loop. It blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check performs a single PING and updates state.
func (m *Monitor) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := m.rdb.Ping(pingCtx).Err()
	elapsed := time.Since(start)

	m.mu.Lock()
	wasConnected := m.connected

	if err != nil {
		m.connected = false
		m.lastErr = err.Error()
		if wasConnected {
			m.downSince = time.Now()
			m.sustainedFired = false
		}
		downFor := time.Since(m.downSince)
		m.mu.Unlock()

		if wasConnected {
			log.Printf("redis health: boiler %s mailbox streams %v: connection lost: %v", m.boilerID, m.streams, err)
			if m.onDown != nil {
				m.onDown()
			}
		}
		m.maybeEscalate(downFor)

		m.reconnect(ctx)
		return
	}

	m.connected = true
	m.lastPing = time.Now()
	m.latency = elapsed
	m.lastErr = ""
	m.mu.Unlock()

	if !wasConnected {
		log.Printf("redis health: boiler %s mailbox streams %v: connection restored (latency=%v)", m.boilerID, m.streams, elapsed)
		if m.onUp != nil {
			m.onUp()
		}
	}
}

// maybeEscalate invokes onSustainedFn once per continuous outage that
// crosses sustainedAfter.
func (m *Monitor) maybeEscalate(downFor time.Duration) {
	if m.onSustainedFn == nil || m.sustainedAfter <= 0 || downFor < m.sustainedAfter {
		return
	}
	m.mu.Lock()
	already := m.sustainedFired
	m.sustainedFired = true
	m.mu.Unlock()
	if already {
		return
	}
	log.Printf("redis health: boiler %s mailbox streams %v: outage exceeded %v (down %v)", m.boilerID, m.streams, m.sustainedAfter, downFor)
	m.onSustainedFn(downFor)
}

// reconnect attempts to re-establish the Redis connection with exponential backoff.
// It tries up to 10 times per reconnect cycle.
func (m *Monitor) reconnect(ctx context.Context) {
	const maxAttempts = 10
	const baseDelay = 500 * time.Millisecond
	const maxDelay = 30 * time.Second

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
		if delay > maxDelay {
			delay = maxDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := m.rdb.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			m.mu.Lock()
			m.connected = true
			m.lastPing = time.Now()
			m.lastErr = ""
			m.reconnects++
			m.mu.Unlock()

			log.Printf("redis health: boiler %s mailbox streams %v: reconnected after %d attempts", m.boilerID, m.streams, attempt+1)
			if m.onUp != nil {
				m.onUp()
			}
			return
		}

		m.mu.RLock()
		downFor := time.Since(m.downSince)
		m.mu.RUnlock()
		m.maybeEscalate(downFor)
		log.Printf("redis health: boiler %s reconnect attempt %d/%d failed: %v", m.boilerID, attempt+1, maxAttempts, err)
	}

	log.Printf("redis health: boiler %s: reconnect failed after %d attempts, will retry on next health check", m.boilerID, maxAttempts)
}

// IsConnected returns whether the last health check succeeded.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// GetStatus returns the current health status.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		BoilerID:   m.boilerID,
		Streams:    append([]string(nil), m.streams...),
		Connected:  m.connected,
		LastPingOK: m.lastPing,
		Reconnects: m.reconnects,
	}
	if m.lastErr != "" {
		s.LastError = m.lastErr
	}
	if m.latency > 0 {
		s.Latency = m.latency.String()
	}
	if !m.connected && !m.downSince.IsZero() {
		s.DownFor = time.Since(m.downSince).String()
	}
	return s
}
