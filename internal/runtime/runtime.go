package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/bus"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/engine"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/format"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/history"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/ingress"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/natsserver"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/session"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/sink"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/status"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/verify"
)

// Runtime wires the daemon together: bus, history, status display, the
// session manager and its collaborators, plus health and metrics HTTP
// endpoints.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup

	ingress *ingress.Service
	store   *history.Store
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()

	store, err := history.Open(ctx, r.cfg.History, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()
	r.store = store

	publisher := status.NewPublisher(ctx, r.cfg.Status, r.logger)
	if err := publisher.Start(); err != nil {
		return fmt.Errorf("failed to start status publisher: %w", err)
	}
	defer publisher.Close()

	gate, err := r.buildGate()
	if err != nil {
		return fmt.Errorf("failed to build speaker gate: %w", err)
	}

	engines, err := engine.NewFactory(r.cfg.Engine, r.cfg.Audio.SampleRate, r.logger)
	if err != nil {
		return fmt.Errorf("failed to build engine factory: %w", err)
	}

	inserter, err := r.buildSink()
	if err != nil {
		return fmt.Errorf("failed to build insertion sink: %w", err)
	}

	manager := session.NewManager(ctx, r.cfg, session.Deps{
		Engines:   engines,
		Gate:      gate,
		Formatter: format.New(r.cfg.Format.FillerWords),
		Sink:      inserter,
		Publisher: publisher,
		OnResult:  r.handleResult(ctx),
		Logger:    r.logger,
	})

	ing := ingress.NewService(ctx, r.cfg.Audio, busClient, manager, r.logger)
	if err := ing.Start(); err != nil {
		return fmt.Errorf("failed to start ingress: %w", err)
	}
	defer ing.Close()
	r.ingress = ing

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/history/recent", r.handleHistory)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("daemon started", slog.String("addr", addr))

	<-ctx.Done()
	r.logger.Info("daemon stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) buildGate() (*verify.Gate, error) {
	var enrolled []float32
	if r.cfg.Verify.Enabled && r.cfg.Verify.EmbeddingPath != "" {
		vec, err := verify.LoadEmbedding(r.cfg.Verify.EmbeddingPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// Verification is opt-in: no enrollment means the gate is
				// bypassed, not an error.
				r.logger.Info("no enrolled embedding found, speaker gate bypassed",
					slog.String("path", r.cfg.Verify.EmbeddingPath))
			} else {
				return nil, err
			}
		} else {
			enrolled = vec
		}
	}

	var embedder verify.Embedder
	if r.cfg.Verify.Enabled {
		switch r.cfg.Verify.Mode {
		case "exec":
			e, err := verify.NewExecEmbedder(r.cfg.Verify)
			if err != nil {
				return nil, err
			}
			embedder = e
		default:
			embedder = verify.NewMockEmbedder(enrolled, nil)
		}
	}
	return verify.NewGate(embedder, enrolled, r.cfg.Verify.Threshold, r.logger), nil
}

func (r *Runtime) buildSink() (sink.Inserter, error) {
	if r.cfg.Sink.Mode == "exec" {
		return sink.NewExecInserter(r.cfg.Sink.Command)
	}
	return sink.NewMock(), nil
}

// handleResult records finished sessions and broadcasts delivered
// transcripts. Both are best-effort from the session's perspective.
func (r *Runtime) handleResult(ctx context.Context) func(session.Result) {
	return func(res session.Result) {
		errMsg := res.Err
		if err := r.store.RecordSession(ctx, history.Entry{
			SessionID:  res.SessionID,
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
			Outcome:    res.Outcome,
			Error:      errMsg,
			Transcript: res.Text,
		}); err != nil {
			r.logger.Warn("failed to record session history", slog.String("error", err.Error()))
		}
		if err := r.store.Prune(ctx); err != nil {
			r.logger.Warn("history prune failed", slog.String("error", err.Error()))
		}
		if r.ingress != nil {
			r.ingress.PublishResult(res)
		}
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && r.ingress != nil && r.ingress.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) handleHistory(w http.ResponseWriter, req *http.Request) {
	entries, err := r.store.ListRecent(req.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
