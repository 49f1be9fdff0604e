package game

import (
	"context"
	"math"
	"time"
)

// HeadlessOptions controls an offscreen run.
type HeadlessOptions struct {
	MaxTicks int  // 0 = run until ctx is cancelled
	FPS      int  // Synthetic frame rate; <= 0 means 60
	Stroke   bool // Drag a wave across the canvas while running
	Realtime bool // Pace frames with a wall-clock ticker
}

// RunHeadless drives l without a window. Frames are fed synthetic
// timestamps spaced 1/FPS apart unless Realtime is set.
func RunHeadless(ctx context.Context, l *Loop, opts HeadlessOptions) error {
	fps := opts.FPS
	if fps <= 0 {
		fps = 60
	}
	interval := time.Second / time.Duration(fps)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticks := make(chan time.Time)
	go func() {
		defer close(ticks)

		var ticker *time.Ticker
		if opts.Realtime {
			ticker = time.NewTicker(interval)
			defer ticker.Stop()
		}

		now := time.Now()
		for i := 0; opts.MaxTicks <= 0 || i < opts.MaxTicks; i++ {
			if ticker != nil {
				select {
				case <-ctx.Done():
					return
				case now = <-ticker.C:
				}
			} else {
				now = now.Add(interval)
			}

			if opts.Stroke {
				strokeStep(l, i, opts.MaxTicks)
			}

			select {
			case <-ctx.Done():
				return
			case ticks <- now:
			}
		}
	}()

	err := l.Run(ctx, ticks)
	cancel()
	for range ticks {
	}
	return err
}

// strokeStep moves the pointer along one pass of a sine wave per strokeTicks
// frames, pressing at the start of each pass and releasing at the end.
func strokeStep(l *Loop, i, maxTicks int) {
	const strokeTicks = 120

	w, h := l.canvasSize()
	if w == 0 || h == 0 {
		return
	}

	step := i % strokeTicks
	t := float64(step) / (strokeTicks - 1)
	x := w * (0.1 + 0.8*t)
	y := h/2 + h/4*math.Sin(t*2*math.Pi)

	switch step {
	case 0:
		l.PointerDown(x, y)
	case strokeTicks - 1:
		l.PointerMove(x, y)
		l.PointerUp()
		return
	}
	if maxTicks > 0 && i == maxTicks-1 {
		l.PointerUp()
		return
	}
	l.PointerMove(x, y)
}
