package engine

import (
	"context"
	"fmt"
	"sync"
)

type mockBatcher struct {
	text string
	err  error
}

// NewMockBatcher returns a batch engine producing fixed output. An empty
// text yields a placeholder describing the input length.
func NewMockBatcher(text string, err error) Batcher {
	return &mockBatcher{text: text, err: err}
}

func (m *mockBatcher) Transcribe(_ context.Context, samples []float32) (Segment, error) {
	if m.err != nil {
		return Segment{}, m.err
	}
	text := m.text
	if text == "" {
		text = fmt.Sprintf("[transcript samples=%d]", len(samples))
	}
	return Segment{Text: text, Final: true}, nil
}

// MockStreamer replays scripted segments: one batch per Feed call, then
// the final segment on Finalize.
type MockStreamer struct {
	mu       sync.Mutex
	Batches  [][]Segment
	FinalSeg Segment
	FeedErr  error
	FinalErr error
	feeds    int
}

func (m *MockStreamer) Feed(_ context.Context, _ []float32) ([]Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FeedErr != nil {
		return nil, m.FeedErr
	}
	if m.feeds >= len(m.Batches) {
		m.feeds++
		return nil, nil
	}
	out := m.Batches[m.feeds]
	m.feeds++
	return out, nil
}

func (m *MockStreamer) Finalize(ctx context.Context) (Segment, error) {
	if m.FinalErr != nil {
		return Segment{}, m.FinalErr
	}
	select {
	case <-ctx.Done():
		return Segment{}, ctx.Err()
	default:
	}
	return m.FinalSeg, nil
}
