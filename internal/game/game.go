// Package game hosts the show in an ebiten window.
package game

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/modes"
	"github.com/iburimskiy/show-engine/internal/show"
)

var background = color.RGBA{R: 5, G: 6, B: 10, A: 255}

// modeKeys switch modes, in show.Names order.
var modeKeys = []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4}

// Options configures a Game.
type Options struct {
	Registry  *show.Registry
	Frames    *frame.Scheduler
	Resources *show.ResourceCounter
	Stats     *modes.Stats
	Log       *zap.Logger
	// Initial is activated on the first frame.
	Initial show.Name
	// Fallback replaces a mode that fails to start or is lost. Empty
	// disables the policy.
	Fallback show.Name
}

// Game is the ebiten host: it owns the surface, drives the frame
// scheduler from Update and maps input onto the controller.
type Game struct {
	ctx      context.Context
	log      *zap.Logger
	frames   *frame.Scheduler
	ctrl     *show.Controller
	surface  *Surface
	res      *show.ResourceCounter
	stats    *modes.Stats
	fallback show.Name

	start      time.Time
	prevKey    map[ebiten.Key]bool
	boosting   bool
	showStatus bool
	outsideW   int
	outsideH   int
	lastErr    error
}

func New(opts Options) *Game {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	frames := opts.Frames
	if frames == nil {
		frames = frame.NewScheduler()
	}
	g := &Game{
		ctx:        context.Background(),
		log:        log,
		frames:     frames,
		surface:    NewSurface(opts.Resources),
		res:        opts.Resources,
		stats:      opts.Stats,
		fallback:   opts.Fallback,
		start:      time.Now(),
		prevKey:    map[ebiten.Key]bool{},
		showStatus: true,
	}
	g.ctrl = show.NewController(opts.Registry, show.WithLogger(log), show.WithObserver(g.observe))
	if opts.Initial != "" {
		g.Switch(opts.Initial)
	}
	return g
}

// Switch activates name on the next frame. Safe from any goroutine.
func (g *Game) Switch(name show.Name) {
	g.frames.Post(func() { g.activate(name) })
}

// SetFallback changes the fallback mode on the next frame. Safe from any
// goroutine.
func (g *Game) SetFallback(name show.Name) {
	g.frames.Post(func() { g.fallback = name })
}

// Controller exposes the show controller; use it from the game goroutine.
func (g *Game) Controller() *show.Controller { return g.ctrl }

// Close stops the running mode and frees the surface.
func (g *Game) Close() {
	g.ctrl.Deactivate()
	g.surface.Release()
}

func (g *Game) Update() error {
	justPressed := func(k ebiten.Key) bool {
		pressed := ebiten.IsKeyPressed(k)
		jp := pressed && !g.prevKey[k]
		g.prevKey[k] = pressed
		return jp
	}

	var in input
	names := show.Names()
	for i, k := range modeKeys {
		if justPressed(k) {
			in.mode = names[i]
		}
	}
	in.boost = ebiten.IsKeyPressed(ebiten.KeySpace) || ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	in.toggleStatus = inpututil.IsKeyJustPressed(ebiten.KeyTab)
	in.quit = justPressed(ebiten.KeyEscape) || justPressed(ebiten.KeyQ)

	scale := 1.0
	if m := ebiten.Monitor(); m != nil {
		scale = m.DeviceScaleFactor()
	}
	if g.surface.resize(int(float64(g.outsideW)*scale), int(float64(g.outsideH)*scale), scale) {
		g.ctrl.Resize()
	}
	return g.step(in, time.Since(g.start))
}

type input struct {
	mode         show.Name
	boost        bool
	toggleStatus bool
	quit         bool
}

// step applies one frame of input and advances the frame scheduler.
func (g *Game) step(in input, now time.Duration) error {
	if in.quit {
		g.Close()
		return ebiten.Termination
	}
	if in.toggleStatus {
		g.showStatus = !g.showStatus
	}
	if in.mode != "" && in.mode != g.ctrl.Current() {
		g.Switch(in.mode)
	}
	if in.boost != g.boosting {
		g.boosting = in.boost
		g.ctrl.Boost(in.boost)
	}
	g.frames.Advance(now)
	return nil
}

// activate starts name, falling back when it cannot start.
func (g *Game) activate(name show.Name) {
	err := g.ctrl.Activate(g.ctx, name, g.surface)
	if err == nil {
		g.lastErr = nil
		if g.boosting {
			g.ctrl.Boost(true)
		}
		return
	}
	g.lastErr = err
	if g.fallback == "" || name == g.fallback {
		return
	}
	g.log.Warn("activating fallback mode", zap.String("failed", string(name)), zap.String("fallback", string(g.fallback)))
	if err := g.ctrl.Activate(g.ctx, g.fallback, g.surface); err != nil {
		g.lastErr = fmt.Errorf("fallback: %w", err)
	}
}

func (g *Game) observe(e show.Event) {
	if e.Kind != show.EventLost {
		return
	}
	g.lastErr = e.Err
	if g.fallback != "" && e.Mode != g.fallback {
		g.frames.Post(func() {
			if g.ctrl.State() == show.Idle {
				g.activate(g.fallback)
			}
		})
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	if img := g.surface.Target(); img != nil {
		op := &ebiten.DrawImageOptions{}
		sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
		if w, h := g.surface.Size(); w > 0 && h > 0 {
			op.GeoM.Scale(float64(sw)/float64(w), float64(sh)/float64(h))
		}
		screen.DrawImage(img, op)
	}
	if g.showStatus {
		g.drawStatus(screen)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.outsideW, g.outsideH = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}
