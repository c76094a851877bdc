package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skufu/NutriPredict/internal/contract"
	"github.com/Skufu/NutriPredict/internal/presenter"
	"github.com/Skufu/NutriPredict/internal/timeutil"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
)

// Options configure the sessions a Manager creates.
type Options struct {
	DefaultVersion contract.Version
	RevealInterval time.Duration
	Clock          timeutil.Clock
	Recorder       Recorder
	Logger         *zap.Logger

	// IdleTimeout ends sessions that have not been looked up for this long.
	// Zero keeps sessions until they are ended explicitly.
	IdleTimeout time.Duration
	// MaxSessions caps concurrently active sessions. Zero means no cap.
	MaxSessions int
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Manager keeps the active sessions in memory, keyed by a random UUID.
type Manager struct {
	predictor Predictor
	opts      Options

	mu       sync.RWMutex
	sessions map[string]*entry
	janitor  timeutil.Timer
	stopped  bool
}

func NewManager(predictor Predictor, opts Options) *Manager {
	if opts.DefaultVersion == 0 {
		opts.DefaultVersion = contract.Latest
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Manager{
		predictor: predictor,
		opts:      opts,
		sessions:  make(map[string]*entry),
	}
	if opts.IdleTimeout > 0 {
		m.mu.Lock()
		m.janitor = opts.Clock.AfterFunc(m.sweepInterval(), m.sweep)
		m.mu.Unlock()
	}
	return m
}

// Create starts a session. A zero version selects the manager default.
func (m *Manager) Create(version contract.Version) (*Session, error) {
	if version == 0 {
		version = m.opts.DefaultVersion
	}

	id := uuid.NewString()
	pres := presenter.New(m.opts.Clock, m.opts.RevealInterval)
	s, err := New(id, version, m.predictor, pres, m.opts.Recorder, m.opts.Logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.sessions[id] = &entry{session: s, lastSeen: m.opts.Clock.Now()}
	m.mu.Unlock()

	m.opts.Logger.Info("session started", zap.String("session_id", id), zap.Stringer("contract_version", version))
	return s, nil
}

// Get returns the session and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.opts.Clock.Now()
	return e.session, nil
}

// End ends and forgets the session.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	e.session.End()
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown ends every session and stops idle expiry.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.stopped = true
	if m.janitor != nil {
		m.janitor.Stop()
	}
	m.mu.Unlock()

	for _, e := range sessions {
		e.session.End()
	}
}

// sweepInterval bounds how long past IdleTimeout an abandoned session lives.
func (m *Manager) sweepInterval() time.Duration {
	return max(m.opts.IdleTimeout/2, time.Second)
}

func (m *Manager) sweep() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	now := m.opts.Clock.Now()
	var expired []*Session
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) >= m.opts.IdleTimeout {
			expired = append(expired, e.session)
			delete(m.sessions, id)
		}
	}
	m.janitor = m.opts.Clock.AfterFunc(m.sweepInterval(), m.sweep)
	m.mu.Unlock()

	for _, s := range expired {
		m.opts.Logger.Info("session expired", zap.String("session_id", s.ID()))
		s.End()
	}
}
