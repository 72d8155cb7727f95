package verify

import "context"

type mockEmbedder struct {
	vector []float32
	err    error
}

// NewMockEmbedder returns an embedder that always produces the given
// vector (or error).
func NewMockEmbedder(vector []float32, err error) Embedder {
	return &mockEmbedder{vector: vector, err: err}
}

func (m *mockEmbedder) Embed(_ context.Context, _ []float32, _ int) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float32, len(m.vector))
	copy(out, m.vector)
	return out, nil
}
