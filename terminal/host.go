// Package terminal hosts the animation in a text terminal. Each cell shows
// two canvas pixels stacked vertically using the upper half block.
package terminal

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/inkdust/config"
	"github.com/pthm-cable/inkdust/game"
	"github.com/pthm-cable/inkdust/glyph"
	"github.com/pthm-cable/inkdust/renderer"
	"github.com/pthm-cable/inkdust/telemetry"
)

const halfBlock = '▀'

// Host drives a Loop from tcell events and paints its canvas to the screen.
type Host struct {
	screen  tcell.Screen
	loop    *game.Loop
	surface *renderer.ImageSurface
	output  *telemetry.OutputManager
	logger  *slog.Logger

	buttons tcell.ButtonMask
	paused  bool
}

// NewHost creates a canvas matching the screen. screen must already be
// initialized.
func NewHost(screen tcell.Screen, cfg *config.Config, rasterizer glyph.Rasterizer, opts game.Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	screen.EnableMouse()
	screen.HideCursor()

	cols, rows := screen.Size()
	surface := renderer.NewImageSurface(cols, rows*2)
	return &Host{
		screen:  screen,
		loop:    game.NewLoop(cfg, surface, rasterizer, opts),
		surface: surface,
		output:  opts.Output,
		logger:  logger,
	}
}

// Loop returns the animation loop driven by the host.
func (h *Host) Loop() *game.Loop {
	return h.loop
}

// Run multiplexes terminal events and frame ticks until ctx is cancelled,
// ticks is closed or the user quits. Cancellation is reported even when it
// is what closed ticks.
func (h *Host) Run(ctx context.Context, ticks <-chan time.Time) error {
	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go h.screen.ChannelEvents(events, quit)

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !h.HandleEvent(ev) {
				return nil
			}

		case now, ok := <-ticks:
			if !ok {
				return ctx.Err()
			}
			var elapsed time.Duration
			if !last.IsZero() {
				elapsed = now.Sub(last)
			}
			last = now

			if !h.paused {
				h.loop.Frame(elapsed)
			}
			h.Draw()
		}
	}
}

// HandleEvent applies one terminal event. Returns false when the user asks
// to quit.
func (h *Host) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return h.handleKey(ev)

	case *tcell.EventMouse:
		h.handleMouse(ev)

	case *tcell.EventResize:
		cols, rows := ev.Size()
		h.loop.Resize(cols, rows*2)
		if !h.paused {
			h.loop.Start()
		}
		h.screen.Sync()
	}
	return true
}

func (h *Host) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
	default:
		return true
	}

	switch ev.Rune() {
	case 'q':
		return false
	case 'c':
		h.loop.Clear()
	case 's':
		if path, err := h.loop.Save(h.output, time.Now()); err != nil {
			h.logger.Error("saving frame", "error", err)
		} else {
			h.logger.Info("frame saved", "path", path)
		}
	case 'm':
		h.loop.SetSmudge(!h.loop.Smudge())
	case ' ':
		h.paused = !h.paused
		if h.paused {
			h.loop.Stop()
		} else {
			h.loop.Start()
		}
	}
	return true
}

// handleMouse maps a cell to the centre of its lower pixel and turns
// button transitions into pointer down and up.
func (h *Host) handleMouse(ev *tcell.EventMouse) {
	col, row := ev.Position()
	x, y := float64(col)+0.5, float64(row*2)+1

	pressed := ev.Buttons()&tcell.Button1 != 0
	wasPressed := h.buttons&tcell.Button1 != 0
	h.buttons = ev.Buttons()

	switch {
	case pressed && !wasPressed:
		h.loop.PointerDown(x, y)
	case !pressed && wasPressed:
		h.loop.PointerMove(x, y)
		h.loop.PointerUp()
		return
	}
	h.loop.PointerMove(x, y)
}

// Draw copies the canvas to the screen.
func (h *Host) Draw() {
	img := h.surface.Image()
	cols, rows := h.screen.Size()
	b := img.Bounds()

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			fg, bg := cellColors(img, b, col, row)
			h.screen.SetContent(col, row, halfBlock, nil, tcell.StyleDefault.Foreground(fg).Background(bg))
		}
	}
	h.screen.Show()
}

// cellColors returns the colours of the two pixels under a cell. Pixels
// outside the canvas are black.
func cellColors(img *image.RGBA, b image.Rectangle, col, row int) (top, bottom tcell.Color) {
	return termColor(img, b, image.Pt(col, row*2)), termColor(img, b, image.Pt(col, row*2+1))
}

func termColor(img *image.RGBA, b image.Rectangle, p image.Point) tcell.Color {
	if !p.In(b) {
		return tcell.ColorBlack
	}
	px := img.RGBAAt(p.X, p.Y)
	c, ok := colorful.MakeColor(px)
	if !ok {
		return tcell.ColorBlack
	}
	// Translucent pixels composite over black
	c = colorful.Color{}.BlendRgb(c, float64(px.A)/255)
	r, g, bl := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(bl))
}
