//go:build !whisper_cpp

package engine

import (
	"fmt"
	"log/slog"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

// Without the whisper_cpp build tag the local streaming engine is not
// compiled in; selecting it is a setup error, mirroring the unavailable
// model case.
type whisperModel struct{}

func loadWhisperModel(_ config.EngineConfig, _ int, _ *slog.Logger) (*whisperModel, error) {
	return nil, fmt.Errorf("%w: built without whisper_cpp tag", ErrUnavailable)
}

func (m *whisperModel) newStreamer() (Streamer, error) {
	return nil, fmt.Errorf("%w: built without whisper_cpp tag", ErrUnavailable)
}
