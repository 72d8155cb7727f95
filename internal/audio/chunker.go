package audio

import (
	"sync"
	"time"
)

// Window is an immutable slice of mono samples handed to a consumer as one
// unit. Samples must not be mutated after the window is created.
type Window struct {
	Samples     []float32
	StartOffset time.Duration
	Duration    time.Duration
}

// Chunker accumulates samples pushed by the capture side and cuts them into
// fixed-duration windows with a configurable trailing overlap, so decoding
// context is preserved across chunk boundaries. All methods are safe for
// concurrent use; the lock is held only for memory copies.
type Chunker struct {
	mu         sync.Mutex
	sampleRate int
	chunk      int // samples per window
	overlap    int // samples shared between consecutive windows
	buf        []float32
	offset     int // absolute index of buf[0] within the session stream
	total      int // samples pushed since last Reset
}

func NewChunker(sampleRate int, chunk, overlap time.Duration) *Chunker {
	chunkSamples := int(chunk.Seconds() * float64(sampleRate))
	overlapSamples := int(overlap.Seconds() * float64(sampleRate))
	if chunkSamples < 1 {
		chunkSamples = 1
	}
	if overlapSamples >= chunkSamples {
		overlapSamples = chunkSamples - 1
	}
	if overlapSamples < 0 {
		overlapSamples = 0
	}
	return &Chunker{
		sampleRate: sampleRate,
		chunk:      chunkSamples,
		overlap:    overlapSamples,
	}
}

// Push appends samples in FIFO order. Samples are copied; the caller may
// reuse its slice.
func (c *Chunker) Push(samples []float32) {
	if len(samples) == 0 {
		return
	}
	c.mu.Lock()
	c.buf = append(c.buf, samples...)
	c.total += len(samples)
	c.mu.Unlock()
}

// DrainWindow returns the next complete window, or nil if less than a full
// chunk is buffered. Consecutive windows share the configured overlap: only
// the non-overlapping head is removed from the buffer.
func (c *Chunker) DrainWindow() *Window {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.buf) < c.chunk {
		return nil
	}
	samples := make([]float32, c.chunk)
	copy(samples, c.buf[:c.chunk])
	w := &Window{
		Samples:     samples,
		StartOffset: c.samplesToDuration(c.offset),
		Duration:    c.samplesToDuration(c.chunk),
	}
	advance := c.chunk - c.overlap
	c.buf = c.buf[advance:]
	c.offset += advance
	return w
}

// DrainAll returns whatever is buffered and clears it. An empty or
// sub-minimum buffer yields an empty result, not an error; short recordings
// are a normal case and the session decides what to do with them.
func (c *Chunker) DrainAll() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.buf) == 0 {
		return nil
	}
	samples := make([]float32, len(c.buf))
	copy(samples, c.buf)
	c.offset += len(c.buf)
	c.buf = nil
	return samples
}

// Head returns a copy of up to d worth of the oldest buffered samples
// without consuming them. The speaker gate reads its verification window
// this way so the same audio still reaches the transcription engine.
func (c *Chunker) Head(d time.Duration) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int(d.Seconds() * float64(c.sampleRate))
	if n > len(c.buf) {
		n = len(c.buf)
	}
	if n <= 0 {
		return nil
	}
	samples := make([]float32, n)
	copy(samples, c.buf[:n])
	return samples
}

// Duration reports the total audio pushed since the last Reset, drained or
// not.
func (c *Chunker) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samplesToDuration(c.total)
}

// Buffered reports how much undrained audio is currently held.
func (c *Chunker) Buffered() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samplesToDuration(len(c.buf))
}

// Reset discards all buffered samples and restarts offsets. This is the
// only way samples are ever dropped.
func (c *Chunker) Reset() {
	c.mu.Lock()
	c.buf = nil
	c.offset = 0
	c.total = 0
	c.mu.Unlock()
}

func (c *Chunker) samplesToDuration(n int) time.Duration {
	return time.Duration(float64(n) / float64(c.sampleRate) * float64(time.Second))
}
