package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/audio"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/engine"
)

// Session owns one recording-to-delivery lifecycle. All state transitions
// happen on the session goroutine; the audio producer only touches the
// chunker, which has its own lock.
type Session struct {
	ID         string
	generation uint64
	startedAt  time.Time

	mgr     *Manager
	log     *slog.Logger
	chunker *audio.Chunker

	streamer engine.Streamer
	batcher  engine.Batcher

	ctx             context.Context
	cancel          context.CancelFunc
	deactivated     chan struct{}
	deactivateOnce  sync.Once
	done            chan struct{}
	timedOut        atomic.Bool
	cancelRequested atomic.Bool

	stateMu    sync.Mutex
	state      State
	transcript *transcript

	outcome    string
	failure    FailureKind
	failureErr error
	finalText  string
	similarity float64
}

func (s *Session) currentState() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()
	s.log.Debug("session state", slog.String("state", next.String()))
	s.mgr.publish(s.ID, next)
}

func (s *Session) run() {
	defer s.finish()

	s.setState(StateArming)
	streamer, batcher, err := s.mgr.deps.Engines()
	if err != nil {
		s.fail(FailureEngineUnavailable, err)
		return
	}
	s.streamer = streamer
	s.batcher = batcher

	s.setState(StateRecording)
	timeout := time.Duration(s.mgr.cfg.Session.TimeoutMS) * time.Millisecond
	timer := time.AfterFunc(timeout, func() {
		s.timedOut.Store(true)
		s.cancel()
	})
	defer timer.Stop()

	verified := !s.mgr.deps.Gate.Enabled()
	minDuration := time.Duration(s.mgr.cfg.Audio.MinDurationMS) * time.Millisecond
	verifyWindow := time.Duration(s.mgr.cfg.Verify.WindowMS) * time.Millisecond

	ticker := time.NewTicker(time.Duration(s.mgr.cfg.Session.PollMS) * time.Millisecond)
	defer ticker.Stop()

recording:
	for {
		select {
		case <-s.ctx.Done():
			s.interrupted()
			return
		case <-s.deactivated:
			break recording
		case <-ticker.C:
			ok, err := s.pump(&verified, verifyWindow)
			if err != nil {
				s.engineFailed(err)
				return
			}
			if !ok {
				return
			}
		}
	}

	if s.chunker.Duration() < minDuration {
		// Accidental taps are common; a too-short recording is a silent
		// no-op, not an error.
		s.log.Debug("recording below minimum duration, ignoring",
			slog.Duration("duration", s.chunker.Duration()))
		s.outcome = OutcomeShortAudio
		return
	}

	if !verified {
		s.setState(StateVerifying)
		if !s.runGate(s.chunker.Head(verifyWindow)) {
			return
		}
	}

	s.setState(StateTranscribing)
	final, err := s.transcribe()
	if err != nil {
		s.engineFailed(err)
		return
	}
	s.transcript.apply(final)

	s.setState(StateFormatting)
	text := s.mgr.deps.Formatter.Format(s.transcript.text())

	s.setState(StateDelivering)
	if text != "" {
		// Delivery happens exactly once; sink failures are logged and the
		// session still completes, since the text was produced.
		if err := s.mgr.deps.Sink.Insert(s.ctx, text); err != nil {
			s.log.Warn("text insertion failed", slog.String("error", err.Error()))
		}
	}
	s.finalText = text
	s.outcome = OutcomeDelivered
}

// pump advances the recording phase: runs the speaker gate once enough
// audio has arrived, then feeds complete windows to a streaming engine.
// Returns ok=false when the session has ended (gate reject or error).
func (s *Session) pump(verified *bool, verifyWindow time.Duration) (bool, error) {
	if !*verified {
		if s.chunker.Duration() < verifyWindow {
			return true, nil
		}
		if !s.runGate(s.chunker.Head(verifyWindow)) {
			return false, nil
		}
		*verified = true
	}
	if s.streamer == nil {
		return true, nil
	}
	for w := s.chunker.DrainWindow(); w != nil; w = s.chunker.DrainWindow() {
		segs, err := s.streamer.Feed(s.ctx, w.Samples)
		if err != nil {
			return false, err
		}
		for _, seg := range segs {
			s.transcript.apply(seg)
		}
	}
	return true, nil
}

// runGate verifies the speaker on the given window. A rejection ends the
// session before any transcription work; the buffered audio of an
// unverified speaker is discarded immediately.
func (s *Session) runGate(samples []float32) bool {
	accepted, similarity, err := s.mgr.deps.Gate.Verify(s.ctx, samples, s.mgr.cfg.Audio.SampleRate)
	s.similarity = similarity
	if err != nil {
		if s.ctx.Err() != nil {
			s.interrupted()
			return false
		}
		s.fail(FailureVerification, err)
		return false
	}
	if !accepted {
		s.chunker.Reset()
		s.log.Info("speaker rejected", slog.Float64("similarity", similarity))
		s.failure = FailureSpeakerMismatch
		s.outcome = OutcomeRejected
		s.setState(StateFailed)
		return false
	}
	return true
}

// transcribe drains the remaining audio into the engine and obtains the
// final segment.
func (s *Session) transcribe() (engine.Segment, error) {
	if s.streamer != nil {
		for w := s.chunker.DrainWindow(); w != nil; w = s.chunker.DrainWindow() {
			segs, err := s.streamer.Feed(s.ctx, w.Samples)
			if err != nil {
				return engine.Segment{}, err
			}
			for _, seg := range segs {
				s.transcript.apply(seg)
			}
		}
		if tail := s.chunker.DrainAll(); len(tail) > 0 {
			segs, err := s.streamer.Feed(s.ctx, tail)
			if err != nil {
				return engine.Segment{}, err
			}
			for _, seg := range segs {
				s.transcript.apply(seg)
			}
		}
		return s.awaitEngine(func(ctx context.Context) (engine.Segment, error) {
			return s.streamer.Finalize(ctx)
		})
	}

	samples := s.chunker.DrainAll()
	return s.awaitEngine(func(ctx context.Context) (engine.Segment, error) {
		return s.batcher.Transcribe(ctx, samples)
	})
}

// awaitEngine runs an engine call and stops waiting when the session is
// canceled or times out. The underlying call may still complete later; its
// result is handed to the manager and discarded there.
func (s *Session) awaitEngine(fn func(context.Context) (engine.Segment, error)) (engine.Segment, error) {
	type engineResult struct {
		seg engine.Segment
		err error
	}
	ch := make(chan engineResult, 1)
	go func() {
		seg, err := fn(s.ctx)
		ch <- engineResult{seg: seg, err: err}
	}()

	select {
	case r := <-ch:
		return r.seg, r.err
	case <-s.ctx.Done():
		generation := s.generation
		go func() {
			r := <-ch
			if r.err == nil {
				s.mgr.discardStale(generation, r.seg)
			}
		}()
		return engine.Segment{}, s.ctx.Err()
	}
}

// interrupted handles context cancellation: the timeout watchdog and an
// explicit cancel both land here.
func (s *Session) interrupted() {
	if s.timedOut.Load() {
		s.outcome = OutcomeTimedOut
		s.failure = FailureTimeout
		s.log.Info("session timed out")
		s.setState(StateTimedOut)
		return
	}
	s.outcome = OutcomeCanceled
	s.log.Info("session canceled")
}

func (s *Session) engineFailed(err error) {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.interrupted()
	case errors.Is(err, engine.ErrTimeout):
		s.outcome = OutcomeTimedOut
		s.failure = FailureTimeout
		s.failureErr = err
		s.log.Warn("engine call timed out", slog.String("error", err.Error()))
		s.setState(StateTimedOut)
	case errors.Is(err, engine.ErrUnavailable):
		s.fail(FailureEngineUnavailable, err)
	default:
		s.fail(FailureEngine, err)
	}
}

func (s *Session) fail(kind FailureKind, err error) {
	s.failure = kind
	s.failureErr = err
	s.outcome = OutcomeFailed
	s.log.Error("session failed",
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))
	s.setState(StateFailed)
}

// finish releases the session slot and resets all state. Error and timeout
// glyphs stay on the status display until the next activation; everything
// else clears to idle.
func (s *Session) finish() {
	s.cancel()
	s.chunker.Reset()

	if s.outcome == "" {
		s.outcome = OutcomeCanceled
	}
	switch s.outcome {
	case OutcomeTimedOut, OutcomeFailed, OutcomeRejected:
		// terminal notification already published
	default:
		s.setState(StateIdle)
	}

	elapsed := time.Since(s.startedAt)
	s.mgr.metrics.recordFinish(s.mgr.ctx, s.outcome, elapsed)
	s.log.Info("session finished",
		slog.String("outcome", s.outcome),
		slog.Duration("elapsed", elapsed))

	if s.mgr.deps.OnResult != nil {
		errMsg := ""
		if s.failureErr != nil {
			errMsg = s.failureErr.Error()
		}
		s.mgr.deps.OnResult(Result{
			SessionID:  s.ID,
			StartedAt:  s.startedAt,
			FinishedAt: time.Now(),
			Outcome:    s.outcome,
			Failure:    s.failure,
			Err:        errMsg,
			Text:       s.finalText,
			Similarity: s.similarity,
		})
	}

	s.mgr.clearCurrent(s)
	close(s.done)
}

// Wait blocks until the session goroutine has fully released the slot.
func (s *Session) Wait() {
	<-s.done
}
