package ingress

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/bus"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/protocol"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/session"
)

// Service connects the session manager to the outside world: the hotkey
// helper publishes control events, the capture helper publishes audio
// frames, and finished transcripts are broadcast for observers.
type Service struct {
	cfg     config.AudioConfig
	bus     *bus.Client
	manager *session.Manager
	logger  *slog.Logger
	subCtl  *nats.Subscription
	subAud  *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewService(parent context.Context, cfg config.AudioConfig, busClient *bus.Client, manager *session.Manager, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:     cfg,
		bus:     busClient,
		manager: manager,
		logger:  logger.With(slog.String("component", "ingress")),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Service) Start() error {
	subCtl, err := s.bus.Conn().Subscribe(protocol.SubjectControlPrefix+".>", s.handleControl)
	if err != nil {
		return err
	}
	s.subCtl = subCtl

	subAud, err := s.bus.Conn().Subscribe(protocol.SubjectAudioFrame, s.handleFrame)
	if err != nil {
		_ = subCtl.Drain()
		return err
	}
	s.subAud = subAud
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.subCtl != nil {
		_ = s.subCtl.Drain()
	}
	if s.subAud != nil {
		_ = s.subAud.Drain()
	}
}

func (s *Service) Healthy() bool {
	return s.subCtl != nil && s.subAud != nil
}

func (s *Service) handleControl(msg *nats.Msg) {
	switch msg.Subject {
	case protocol.SubjectControlActivate:
		if err := s.manager.Activate(); err != nil {
			if errors.Is(err, session.ErrSessionActive) {
				// Already logged by the manager; not user-visible.
				return
			}
			s.logger.Warn("activation failed", slog.String("error", err.Error()))
		}
	case protocol.SubjectControlDeactivate:
		s.manager.Deactivate()
	case protocol.SubjectControlCancel:
		s.manager.Cancel()
	default:
		if strings.HasPrefix(msg.Subject, protocol.SubjectControlPrefix) {
			s.logger.Debug("ignoring unknown control event", slog.String("subject", msg.Subject))
		}
	}
}

func (s *Service) handleFrame(msg *nats.Msg) {
	var frame protocol.AudioFrame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		s.logger.Warn("failed to decode audio frame", slog.String("error", err.Error()))
		return
	}
	if frame.SampleRate != 0 && frame.SampleRate != s.cfg.SampleRate {
		// Resampling is the capture side's job; mismatched frames are
		// dropped rather than decoded at the wrong rate.
		s.logger.Warn("dropping frame with unexpected sample rate",
			slog.Int("got", frame.SampleRate),
			slog.Int("want", s.cfg.SampleRate))
		return
	}
	samples := decodePCM(frame.PCM)
	if len(samples) == 0 {
		return
	}
	s.manager.PushAudio(samples)
}

// PublishResult broadcasts a finished session. Best-effort: observers may
// or may not be listening.
func (s *Service) PublishResult(res session.Result) {
	msg := protocol.Transcript{
		SessionID: res.SessionID,
		Text:      res.Text,
		Outcome:   res.Outcome,
		Error:     res.Err,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("failed to marshal transcript", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectTranscriptFinal, data); err != nil {
		s.logger.Warn("failed to publish transcript", slog.String("error", err.Error()))
	}
}

func decodePCM(pcm []byte) []float32 {
	n := len(pcm) / 4
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(pcm[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
