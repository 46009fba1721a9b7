// README: Channel lifecycle: dial, handshake, read loop, reconnect policy.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"valetlink/internal/metrics"
	"valetlink/internal/types"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

var ErrNotConnected = errors.New("channel not connected")

// eventAuthenticate carries the session identity right after the transport
// opens. The server may answer with an "unauthorized" push; that is logged,
// never treated as fatal to the transport.
const (
	eventAuthenticate = "authenticate"
	eventUnauthorized = "unauthorized"
)

// Publisher receives every inbound application event. Satisfied by the
// listener registry.
type Publisher interface {
	Publish(event string, payload json.RawMessage)
}

// IdentitySource loads the session identity at connect time, typically from
// the credential store.
type IdentitySource func(ctx context.Context) (types.SessionIdentity, error)

type Config struct {
	URL          string
	BackoffFloor time.Duration
	BackoffCap   time.Duration
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Manager owns the one live connection for the session. Reconnection retries
// forever; only Disconnect stops it.
type Manager struct {
	cfg      Config
	dial     Dialer
	identity IdentitySource
	pub      Publisher
	log      *slog.Logger

	mu         sync.Mutex
	state      State
	tr         Transport
	closed     bool
	cancel     context.CancelFunc
	retryCount int
}

func NewManager(cfg Config, dial Dialer, identity IdentitySource, pub Publisher, log *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		dial:     dial,
		identity: identity,
		pub:      pub,
		log:      log,
		state:    StateDisconnected,
	}
}

// Connect starts the session loop. A call while already Connecting or
// Connected is a no-op, so resume signals can call it blindly.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("manager closed")
	}
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	m.setStateLocked(StateConnecting)
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Reconnect forces a fresh session loop if the channel is down.
func (m *Manager) Reconnect(ctx context.Context) error {
	return m.Connect(ctx)
}

// OnResume is the host suspension/resume liveness hook: the process waking
// up checks the channel instead of waiting for a network-level error.
func (m *Manager) OnResume(ctx context.Context) {
	if m.IsConnected() {
		return
	}
	_ = m.Connect(ctx)
}

// Disconnect is the only path to the intentionally-closed terminal state; it
// suppresses any further auto-reconnect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	if m.tr != nil {
		_ = m.tr.Close()
		m.tr = nil
	}
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()
}

func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Emit sends an outbound action event on the live transport.
func (m *Manager) Emit(event string, payload any) error {
	m.mu.Lock()
	tr := m.tr
	m.mu.Unlock()
	if tr == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tr.WriteJSON(envelope{Event: event, Data: data})
}

// run dials, reads until failure, and redials: immediately after a lost
// connection, then backing off between the floor and the cap on consecutive
// dial failures.
func (m *Manager) run(ctx context.Context) {
	bo := newBackoff(m.cfg.BackoffFloor, m.cfg.BackoffCap)
	attempt := 0

	for {
		if ctx.Err() != nil || m.isClosed() {
			m.toDisconnected()
			return
		}
		if attempt > 0 {
			metrics.ReconnectAttempts.Inc()
		}
		attempt++

		tr, err := m.dial(ctx, m.cfg.URL)
		if err != nil {
			m.mu.Lock()
			m.retryCount++
			retries := m.retryCount
			m.mu.Unlock()
			delay := bo.Next()
			m.log.Warn("channel dial failed", "error", err, "retry", retries, "next_delay", delay)
			if !sleep(ctx, delay) {
				m.toDisconnected()
				return
			}
			continue
		}

		bo.Reset()
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			_ = tr.Close()
			m.toDisconnected()
			return
		}
		m.tr = tr
		m.retryCount = 0
		m.mu.Unlock()

		m.handshake(ctx)

		m.mu.Lock()
		m.setStateLocked(StateConnected)
		m.mu.Unlock()
		m.log.Info("channel connected", "url", m.cfg.URL)

		m.readLoop(tr)

		// Clear the transport and move straight to Connecting in one
		// critical section: a Connect landing between would otherwise see
		// Disconnected and spawn a second session loop.
		m.mu.Lock()
		m.tr = nil
		if m.closed || ctx.Err() != nil {
			m.setStateLocked(StateDisconnected)
			m.mu.Unlock()
			return
		}
		m.setStateLocked(StateConnecting)
		m.mu.Unlock()
		m.log.Info("channel lost, reconnecting")
	}
}

// handshake sends the identity immediately after the transport opens. An
// auth failure is logged and the channel stays open; some deployments
// tolerate partial auth.
func (m *Manager) handshake(ctx context.Context) {
	identity, err := m.identity(ctx)
	if err != nil {
		m.log.Error("session identity unavailable for handshake", "error", err)
		return
	}
	if err := m.Emit(eventAuthenticate, identity); err != nil {
		m.log.Warn("handshake failed, continuing unauthenticated", "error", err)
	}
}

func (m *Manager) readLoop(tr Transport) {
	for {
		data, err := tr.ReadMessage()
		if err != nil {
			m.log.Warn("channel read failed", "error", err)
			_ = tr.Close()
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.log.Warn("discarding unparseable frame", "error", err)
			continue
		}
		if env.Event == "" {
			continue
		}
		if env.Event == eventUnauthorized {
			m.log.Warn("server rejected handshake; events may be incomplete")
			continue
		}
		metrics.InboundEvents.WithLabelValues(env.Event).Inc()
		m.pub.Publish(env.Event, env.Data)
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) toDisconnected() {
	m.mu.Lock()
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	switch s {
	case StateDisconnected:
		metrics.ConnectionState.Set(0)
	case StateConnecting:
		metrics.ConnectionState.Set(1)
	case StateConnected:
		metrics.ConnectionState.Set(2)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
