package verify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Gate decides whether a live voice sample belongs to the enrolled speaker.
// With no enrolled embedding the gate is a pass-through; verification is
// opt-in.
type Gate struct {
	embedder  Embedder
	enrolled  []float32
	threshold float64
	log       *slog.Logger
}

func NewGate(embedder Embedder, enrolled []float32, threshold float64, log *slog.Logger) *Gate {
	return &Gate{
		embedder:  embedder,
		enrolled:  enrolled,
		threshold: threshold,
		log:       log.With(slog.String("component", "speaker-gate")),
	}
}

// Enabled reports whether verification will actually run.
func (g *Gate) Enabled() bool {
	return g != nil && g.embedder != nil && len(g.enrolled) > 0
}

// Verify embeds the sample window and compares it against the enrolled
// embedding. Acceptance requires similarity strictly above the threshold;
// equal-to-threshold is a reject. Embedder failures propagate so the
// session can surface them as setup errors rather than mismatches.
func (g *Gate) Verify(ctx context.Context, samples []float32, sampleRate int) (bool, float64, error) {
	if !g.Enabled() {
		g.log.Debug("no enrolled embedding, gate bypassed")
		return true, 0, nil
	}
	if len(samples) == 0 {
		return false, 0, fmt.Errorf("speaker verification requires a non-empty window")
	}

	sample, err := g.embedder.Embed(ctx, samples, sampleRate)
	if err != nil {
		return false, 0, fmt.Errorf("compute sample embedding: %w", err)
	}
	if len(sample) != len(g.enrolled) {
		return false, 0, fmt.Errorf("embedding length mismatch: sample %d, enrolled %d", len(sample), len(g.enrolled))
	}

	similarity := cosineSimilarity(sample, g.enrolled)
	accepted := similarity > g.threshold
	g.log.Debug("speaker verification",
		slog.Float64("similarity", similarity),
		slog.Float64("threshold", g.threshold),
		slog.Bool("accepted", accepted))
	return accepted, similarity, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
