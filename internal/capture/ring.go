package capture

import (
	"log/slog"
	"sync"

	"github.com/nao1215/hitscan/internal/model"
)

// Ring is a fixed-capacity FIFO of response samples. When full, the oldest
// sample is evicted. Ring is safe for concurrent use; browser drivers
// deliver responses on their own goroutines.
type Ring struct {
	mu     sync.Mutex
	buf    []model.ResponseSample
	head   int // index of the oldest sample
	size   int
	seq    int
	mirror Mirror
	logger *slog.Logger

	pushed  int
	evicted int
}

// RingOption configures a Ring.
type RingOption func(*Ring)

// WithMirror sets where pushed bodies are copied.
func WithMirror(m Mirror) RingOption {
	return func(r *Ring) {
		r.mirror = m
	}
}

// WithRingLogger sets the logger used for mirror failures.
func WithRingLogger(logger *slog.Logger) RingOption {
	return func(r *Ring) {
		r.logger = logger
	}
}

// NewRing creates a ring holding at most capacity samples.
func NewRing(capacity int, opts ...RingOption) (*Ring, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	r := &Ring{
		buf:    make([]model.ResponseSample, capacity),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Push appends a sample, evicting the oldest one when the ring is full.
// The body is mirrored best-effort; a mirror failure is logged at debug
// level and otherwise ignored.
func (r *Ring) Push(s model.ResponseSample) {
	r.mu.Lock()
	if r.size == len(r.buf) {
		r.buf[r.head] = s
		r.head = (r.head + 1) % len(r.buf)
		r.evicted++
	} else {
		r.buf[(r.head+r.size)%len(r.buf)] = s
		r.size++
	}
	r.seq++
	r.pushed++
	seq := r.seq
	mirror := r.mirror
	r.mu.Unlock()

	if mirror == nil {
		return
	}
	if err := mirror.Write(seq, s); err != nil {
		r.logger.Debug("failed to mirror response", "url", s.URL, "error", err)
	}
}

// SnapshotAndClear returns all buffered samples in arrival order and
// empties the ring in one step.
func (r *Ring) SnapshotAndClear() []model.ResponseSample {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.ResponseSample, r.size)
	for i := range r.size {
		idx := (r.head + i) % len(r.buf)
		out[i] = r.buf[idx]
		r.buf[idx] = model.ResponseSample{}
	}
	r.head = 0
	r.size = 0
	return out
}

// Len returns the number of buffered samples.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// RingStats holds ring counters since creation.
type RingStats struct {
	Pushed   int
	Evicted  int
	Buffered int
}

// Stats returns the ring counters.
func (r *Ring) Stats() RingStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RingStats{Pushed: r.pushed, Evicted: r.evicted, Buffered: r.size}
}
