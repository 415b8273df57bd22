// Package consumption tracks how far a reader scrolled through an article
// or watched a video and reports the deepest point reached to the API.
package consumption

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
)

const (
	// DefaultThreshold is the minimum depth gain that triggers a report.
	DefaultThreshold = 0.10
	// ScrollDebounce and VideoDebounce are the quiet periods before a report.
	ScrollDebounce = 2 * time.Second
	VideoDebounce  = time.Second
)

// Reporter delivers one depth report.
type Reporter func(ctx context.Context, kind models.ConsumptionKind, depth float64) error

// Options tune a Tracker. Zero values use the defaults for Kind.
type Options struct {
	Kind      models.ConsumptionKind
	Threshold float64
	Debounce  time.Duration
}

// Tracker keeps the maximum observed depth and reports it once it has grown
// by more than the threshold since the last report and stayed unchanged for
// the debounce window. Close always flushes the final maximum.
type Tracker struct {
	ctx       context.Context
	report    Reporter
	kind      models.ConsumptionKind
	threshold float64
	debounce  time.Duration

	mu           sync.Mutex
	max          float64
	lastReported float64
	timer        *time.Timer
	closed       bool
}

// NewTracker returns a Tracker that reports through report. ctx bounds
// debounced reports fired from timers.
func NewTracker(ctx context.Context, report Reporter, opts Options) *Tracker {
	if opts.Kind == "" {
		opts.Kind = models.ConsumptionScroll
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Debounce <= 0 {
		opts.Debounce = ScrollDebounce
		if opts.Kind == models.ConsumptionVideo {
			opts.Debounce = VideoDebounce
		}
	}
	return &Tracker{
		ctx:       ctx,
		report:    report,
		kind:      opts.Kind,
		threshold: opts.Threshold,
		debounce:  opts.Debounce,
	}
}

// Max returns the deepest point observed so far.
func (t *Tracker) Max() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.max
}

// Observe records a depth sample in [0, 1]. Shallower samples are ignored.
func (t *Tracker) Observe(depth float64) {
	depth = clamp(depth)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || depth <= t.max {
		return
	}
	t.max = depth

	// A pending report waits for the depth to settle.
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.max-t.lastReported > t.threshold {
		t.timer = time.AfterFunc(t.debounce, t.fire)
	}
}

func (t *Tracker) fire() {
	t.mu.Lock()
	if t.closed || t.max-t.lastReported <= t.threshold {
		t.mu.Unlock()
		return
	}
	depth := t.max
	t.lastReported = depth
	t.timer = nil
	t.mu.Unlock()

	if err := t.report(t.ctx, t.kind, depth); err != nil {
		observability.GlobalLogger.WarnContext(t.ctx, "consumption report failed",
			slog.String("kind", string(t.kind)),
			slog.Float64("depth", depth),
			slog.String("error", err.Error()),
		)
	}
}

// Close stops pending timers and reports the final maximum. Later calls
// are no-ops.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	depth := t.max
	t.lastReported = depth
	t.mu.Unlock()

	return t.report(ctx, t.kind, depth)
}

// ScrollDepth converts a scroll position into the fraction of the
// scrollable document that has been passed. Documents that fit in the
// viewport count as fully read.
func ScrollDepth(scrollTop, viewportHeight, documentHeight float64) float64 {
	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 {
		return 1
	}
	return clamp(scrollTop / scrollable)
}

// VideoDepth is the watched fraction of a video.
func VideoDepth(currentTime, duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) {
		return 0
	}
	return clamp(currentTime / duration)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
