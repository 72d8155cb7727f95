package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/audio"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/engine"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/format"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/sink"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/verify"
)

// ErrSessionActive is returned when activation is attempted while another
// session owns the audio stream. The caller logs it; it is never surfaced
// to the user.
var ErrSessionActive = errors.New("a dictation session is already active")

// Publisher mirrors session state to an external status display.
// Implementations must never block the session.
type Publisher interface {
	Publish(sessionID string, state State)
}

// Result summarizes a finished session for the completion hook.
type Result struct {
	SessionID  string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Failure    FailureKind
	Err        string
	Text       string
	Similarity float64
}

// Deps are the session collaborators. Publisher and OnResult may be nil.
type Deps struct {
	Engines   engine.Factory
	Gate      *verify.Gate
	Formatter *format.Formatter
	Sink      sink.Inserter
	Publisher Publisher
	OnResult  func(Result)
	Logger    *slog.Logger
}

// Manager holds the single live session slot. At most one session is in a
// non-idle state at any time; a second activation is rejected, never
// queued. All access to the slot goes through the manager's lock.
type Manager struct {
	cfg     config.Config
	deps    Deps
	log     *slog.Logger
	metrics *sessionMetrics
	ctx     context.Context

	mu         sync.Mutex
	current    *Session
	generation uint64
}

func NewManager(ctx context.Context, cfg config.Config, deps Deps) *Manager {
	log := deps.Logger.With(slog.String("component", "session-manager"))
	metrics, err := newSessionMetrics()
	if err != nil {
		log.Warn("failed to initialize session metrics", slog.String("error", err.Error()))
	}
	return &Manager{
		cfg:     cfg,
		deps:    deps,
		log:     log,
		metrics: metrics,
		ctx:     ctx,
	}
}

// Activate arms a new session. While one is active the call is a logged
// no-op returning ErrSessionActive.
func (m *Manager) Activate() error {
	m.mu.Lock()
	if m.current != nil {
		id := m.current.ID
		m.mu.Unlock()
		m.log.Warn("activation rejected, session already active", slog.String("session_id", id))
		return ErrSessionActive
	}
	m.generation++
	s := m.newSession(m.generation)
	m.current = s
	m.mu.Unlock()

	m.metrics.recordStart(m.ctx)
	m.log.Info("session activated", slog.String("session_id", s.ID))
	go s.run()
	return nil
}

// Deactivate marks the end of recording (key released). No-op when idle.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return
	}
	s.deactivateOnce.Do(func() { close(s.deactivated) })
}

// Cancel aborts the live session from any non-terminal state, discarding
// buffered audio and any in-flight engine call.
func (m *Manager) Cancel() {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return
	}
	s.cancelRequested.Store(true)
	s.cancel()
}

// PushAudio feeds captured samples into the live session's chunker. Samples
// arriving with no live session, or after deactivation, are dropped.
func (m *Manager) PushAudio(samples []float32) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return
	}
	select {
	case <-s.deactivated:
		return
	default:
	}
	s.chunker.Push(samples)
}

// Snapshot reports the live session, if any.
func (m *Manager) Snapshot() (id string, state State, active bool) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return "", StateIdle, false
	}
	return s.ID, s.currentState(), true
}

func (m *Manager) newSession(generation uint64) *Session {
	ctx, cancel := context.WithCancel(m.ctx)
	id := uuid.NewString()
	return &Session{
		ID:         id,
		generation: generation,
		startedAt:  time.Now(),
		mgr:        m,
		log:        m.log.With(slog.String("session_id", id)),
		chunker: audio.NewChunker(
			m.cfg.Audio.SampleRate,
			time.Duration(m.cfg.Audio.ChunkMS)*time.Millisecond,
			time.Duration(m.cfg.Audio.OverlapMS)*time.Millisecond,
		),
		transcript:  newTranscript(),
		ctx:         ctx,
		cancel:      cancel,
		deactivated: make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (m *Manager) clearCurrent(s *Session) {
	m.mu.Lock()
	if m.current == s {
		m.current = nil
	}
	m.mu.Unlock()
}

// discardStale receives an engine result that arrived after the session
// stopped waiting for it. In-flight native calls cannot always be
// preempted; the result is dropped on arrival.
func (m *Manager) discardStale(generation uint64, seg engine.Segment) {
	m.mu.Lock()
	live := m.generation
	m.mu.Unlock()
	m.log.Debug("discarding stale engine result",
		slog.Uint64("generation", generation),
		slog.Uint64("live_generation", live),
		slog.Int("segment_index", seg.Index))
}

func (m *Manager) publish(id string, state State) {
	if m.deps.Publisher == nil {
		return
	}
	m.deps.Publisher.Publish(id, state)
}
