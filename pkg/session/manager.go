package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one user's flow. Handlers may overlap, state mutation may
// not; the mutex keeps transitions serialized.
type Session struct {
	ID string

	mu      sync.Mutex
	state   State
	touched time.Time
	cancel  context.CancelFunc // in-flight remote call, nil when idle
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply runs one pure transition against the stored state.
func (s *Session) Apply(ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Apply(s.state, ev)
	if err != nil {
		return s.state, err
	}
	s.state = next
	s.touched = time.Now()
	return next, nil
}

// BeginProcessing transitions into remote-processing and derives a
// cancellable context for the round trip. The returned generation must be
// passed back with ProcessingFinished / ProcessingFailed; Reset cancels the
// context and leaves the generation stale.
func (s *Session) BeginProcessing(parent context.Context) (context.Context, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Apply(s.state, ProcessingStarted{})
	if err != nil {
		return nil, 0, err
	}
	ctx, cancel := context.WithCancel(parent)
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.state = next
	s.touched = time.Now()
	return ctx, next.Generation, nil
}

// Reset drops all state and cancels any outstanding remote call.
func (s *Session) Reset() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	next, _ := Apply(s.state, Reset{})
	s.state = next
	s.touched = time.Now()
	return next
}

// Manager keeps sessions in memory, keyed by id. There is no persistence;
// idle sessions are swept away after the TTL.
type Manager struct {
	sessions sync.Map // id -> *Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager starts a manager whose sweeper drops sessions idle longer
// than ttl. A non-positive ttl disables sweeping.
func NewManager(ttl time.Duration) *Manager {
	m := &Manager{ttl: ttl, stop: make(chan struct{})}
	if ttl > 0 {
		go m.sweepLoop()
	}
	return m
}

// Create registers a new session at the upload stage.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:      uuid.NewString(),
		state:   State{Stage: StageUpload},
		touched: time.Now(),
	}
	m.sessions.Store(s.ID, s)
	return s
}

// Get looks a session up by id.
func (m *Manager) Get(id string) (*Session, bool) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Close stops the sweeper.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) sweepLoop() {
	t := time.NewTicker(m.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.sweep(time.Now())
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.sessions.Range(func(key, value any) bool {
		s := value.(*Session)
		s.mu.Lock()
		idle := now.Sub(s.touched)
		if idle > m.ttl && s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
		if idle > m.ttl {
			m.sessions.Delete(key)
		}
		return true
	})
}
