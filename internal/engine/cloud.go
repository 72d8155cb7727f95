package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

type cloudBatcher struct {
	cfg        config.EngineConfig
	sampleRate int
	client     *http.Client
	log        *slog.Logger
}

type cloudRequest struct {
	AudioBase64 string `json:"audio_base64"`
	SampleRate  int    `json:"sample_rate"`
	Language    string `json:"language,omitempty"`
}

type cloudResponse struct {
	Text string `json:"text"`
}

// NewCloudBatcher sends the full recording to a remote transcription HTTP
// endpoint as base64 16-bit PCM and reads back {"text":"..."}.
func NewCloudBatcher(cfg config.EngineConfig, sampleRate int, log *slog.Logger) Batcher {
	return &cloudBatcher{
		cfg:        cfg,
		sampleRate: sampleRate,
		client:     &http.Client{},
		log:        log,
	}
}

func (b *cloudBatcher) Transcribe(ctx context.Context, samples []float32) (Segment, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.CallTimeoutMS)*time.Millisecond)
	defer cancel()

	payload := cloudRequest{
		AudioBase64: base64.StdEncoding.EncodeToString(pcm16Bytes(samples)),
		SampleRate:  b.sampleRate,
		Language:    b.cfg.Language,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Segment{}, err
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, b.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Segment{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return Segment{}, fmt.Errorf("%w: %s", ErrTimeout, b.cfg.Endpoint)
		}
		return Segment{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return Segment{}, fmt.Errorf("%w: endpoint returned %s", ErrUnavailable, resp.Status)
	}
	if resp.StatusCode >= 300 {
		return Segment{}, fmt.Errorf("cloud engine returned status %s", resp.Status)
	}

	var decoded cloudResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Segment{}, fmt.Errorf("decode cloud response: %w", err)
	}
	return Segment{Text: decoded.Text, Final: true}, nil
}

func pcm16Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}
