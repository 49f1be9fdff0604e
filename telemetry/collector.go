package telemetry

import "time"

// Population is a per-behavior particle count.
type Population struct {
	Text      int
	Floating  int
	Transient int
}

// Total returns the sum of all counts.
func (p Population) Total() int {
	return p.Text + p.Floating + p.Transient
}

// Collector accumulates frame events within windows and produces WindowStats.
type Collector struct {
	windowFrames int64

	// Current window tracking
	windowStartFrame int64
	elapsed          time.Duration

	// Counters for current window
	emitted        int
	expired        int
	peakTransient  int
	frameDurations []float64 // milliseconds
}

// NewCollector creates a new stats collector that flushes every
// windowFrames frames.
func NewCollector(windowFrames int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{
		windowFrames:   int64(windowFrames),
		frameDurations: make([]float64, 0, windowFrames),
	}
}

// RecordEmitted records sparks created by pointer input.
func (c *Collector) RecordEmitted(n int) {
	c.emitted += n
}

// RecordExpired records transients removed by a step.
func (c *Collector) RecordExpired(n int) {
	c.expired += n
}

// RecordFrame records the work time of one frame, the wall time it
// covered and the transient count after it.
func (c *Collector) RecordFrame(work, elapsed time.Duration, transient int) {
	c.frameDurations = append(c.frameDurations, float64(work)/float64(time.Millisecond))
	c.elapsed += elapsed
	if transient > c.peakTransient {
		c.peakTransient = transient
	}
}

// ShouldFlush returns true if enough frames have passed to flush the window.
func (c *Collector) ShouldFlush(currentFrame int64) bool {
	return currentFrame-c.windowStartFrame >= c.windowFrames
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentFrame int64, pop Population, phase float64) WindowStats {
	mean, std, p50, p90 := ComputeFrameStats(c.frameDurations)

	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   currentFrame,
		ElapsedSec:       c.elapsed.Seconds(),

		Population: pop.Total(),
		Text:       pop.Text,
		Floating:   pop.Floating,
		Transient:  pop.Transient,

		Emitted:       c.emitted,
		Expired:       c.expired,
		PeakTransient: c.peakTransient,

		FrameMeanMS: mean,
		FrameStdMS:  std,
		FrameP50MS:  p50,
		FrameP90MS:  p90,

		Phase: phase,
	}

	// Reset for next window; elapsed keeps accumulating
	c.windowStartFrame = currentFrame
	c.emitted = 0
	c.expired = 0
	c.peakTransient = 0
	c.frameDurations = c.frameDurations[:0]

	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() int64 {
	return c.windowFrames
}
