package sink

import (
	"context"
	"sync"
)

// Inserter places finished text at the cursor of the focused application.
// The session treats insertion as fire-and-forget: failures are logged by
// the caller but the session still completes, since the text was produced.
type Inserter interface {
	Insert(ctx context.Context, text string) error
}

// Mock records inserted text for tests.
type Mock struct {
	mu       sync.Mutex
	Err      error
	inserted []string
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Insert(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.inserted = append(m.inserted, text)
	return nil
}

// Inserted returns a copy of everything inserted so far.
func (m *Mock) Inserted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.inserted))
	copy(out, m.inserted)
	return out
}
