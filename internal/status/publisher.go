package status

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/session"
)

const dialTimeout = 250 * time.Millisecond

// Publisher mirrors session state to an external status display over a
// local socket, one textual command per transition:
//
//	set <module_id> drawing=on label=● color=#ff5555
//
// Delivery is fire-and-forget: commands are queued to a single serialized
// goroutine, an absent peer is logged once per session and otherwise
// ignored, and the session is never blocked or failed by the display.
type Publisher struct {
	cfg    config.StatusConfig
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan statusCommand
	wg     sync.WaitGroup

	mu            sync.Mutex
	failedSession string
}

type statusCommand struct {
	sessionID string
	line      string
}

func NewPublisher(parent context.Context, cfg config.StatusConfig, log *slog.Logger) *Publisher {
	ctx, cancel := context.WithCancel(parent)
	return &Publisher{
		cfg:    cfg,
		log:    log.With(slog.String("component", "status-publisher")),
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan statusCommand, 32),
	}
}

func (p *Publisher) Start() error {
	if !p.cfg.Enabled {
		return nil
	}
	p.wg.Add(1)
	go p.loop()
	return nil
}

func (p *Publisher) Close() {
	p.cancel()
	p.wg.Wait()
}

// Publish enqueues the command for the given transition. A full queue
// drops the command rather than block the session.
func (p *Publisher) Publish(sessionID string, state session.State) {
	if !p.cfg.Enabled {
		return
	}
	line, ok := commandFor(p.cfg.ModuleID, state)
	if !ok {
		return
	}
	select {
	case p.queue <- statusCommand{sessionID: sessionID, line: line}:
	default:
		p.log.Debug("status queue full, dropping command")
	}
}

func (p *Publisher) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case cmd := <-p.queue:
			p.send(cmd)
		}
	}
}

func (p *Publisher) send(cmd statusCommand) {
	conn, err := net.DialTimeout("unix", p.cfg.SocketPath, dialTimeout)
	if err != nil {
		p.warnOnce(cmd.sessionID, err)
		return
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if _, err := fmt.Fprintln(conn, cmd.line); err != nil {
		p.warnOnce(cmd.sessionID, err)
	}
}

// warnOnce logs a delivery failure at most once per session; an absent
// display is not an error condition.
func (p *Publisher) warnOnce(sessionID string, err error) {
	p.mu.Lock()
	seen := p.failedSession == sessionID
	if !seen {
		p.failedSession = sessionID
	}
	p.mu.Unlock()
	if seen {
		return
	}
	p.log.Warn("status display unreachable",
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()))
}

func commandFor(moduleID string, state session.State) (string, bool) {
	switch state {
	case session.StateRecording:
		return fmt.Sprintf("set %s drawing=on label=● color=#ff5555", moduleID), true
	case session.StateVerifying, session.StateTranscribing, session.StateFormatting, session.StateDelivering:
		return fmt.Sprintf("set %s drawing=on label=◐ color=#f9e2af", moduleID), true
	case session.StateTimedOut, session.StateFailed:
		return fmt.Sprintf("set %s drawing=on label=✗ color=#ff5555", moduleID), true
	case session.StateIdle:
		return fmt.Sprintf("set %s drawing=off", moduleID), true
	default:
		// Arming is sub-perceptual; no display update.
		return "", false
	}
}
