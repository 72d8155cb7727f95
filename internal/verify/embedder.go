package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Embedder computes a fixed-length voice embedding from raw samples. The
// model behind it (Resemblyzer, Silero, ...) is an external concern; the
// gate only needs the vector.
type Embedder interface {
	Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error)
}

type embeddingFile struct {
	Version int       `json:"version"`
	Dims    int       `json:"dims"`
	Vector  []float32 `json:"vector"`
}

// LoadEmbedding reads an enrolled voice embedding from disk. The file is
// replaced wholesale on re-enrollment, never edited in place.
func LoadEmbedding(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read enrolled embedding: %w", err)
	}
	var f embeddingFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode enrolled embedding: %w", err)
	}
	if len(f.Vector) == 0 {
		return nil, fmt.Errorf("enrolled embedding %s has empty vector", path)
	}
	if f.Dims > 0 && f.Dims != len(f.Vector) {
		return nil, fmt.Errorf("enrolled embedding dims mismatch: header %d, vector %d", f.Dims, len(f.Vector))
	}
	return f.Vector, nil
}
