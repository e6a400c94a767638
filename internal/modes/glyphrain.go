package modes

import (
	"context"
	"errors"
	"image/color"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/iburimskiy/show-engine/internal/config"
	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/show"
)

const glyphs = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ<>=+*#$%&@"

// rain is the column state of the glyph rain, one y offset per column.
type rain struct {
	pitch  int
	step   float64
	jitter float64
	height float64
	ys     []float64
	rng    *rand.Rand
}

func newRain(pitch int, step, jitter float64, seed uint64) *rain {
	return &rain{
		pitch:  max(pitch, 1),
		step:   step,
		jitter: jitter,
		rng:    rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// layout sizes the columns for a w×h surface. Surviving columns keep their
// offsets; new ones start at a random height.
func (r *rain) layout(w, h int) {
	cols := max(1, w/r.pitch)
	r.height = float64(h)
	if cols < len(r.ys) {
		r.ys = r.ys[:cols]
	}
	for len(r.ys) < cols {
		r.ys = append(r.ys, r.rng.Float64()*r.height)
	}
	for i, y := range r.ys {
		if y > r.height {
			r.ys[i] = 0
		}
	}
}

// advance moves every column down by step plus jitter, scaled by speed,
// and wraps columns past the bottom to 0.
func (r *rain) advance(speed float64) {
	for i := range r.ys {
		r.ys[i] += (r.step + r.rng.Float64()*r.jitter) * speed
		if r.ys[i] > r.height {
			r.ys[i] = 0
		}
	}
}

func (r *rain) glyph() string {
	i := r.rng.IntN(len(glyphs))
	return glyphs[i : i+1]
}

// glyphRain draws falling characters over a slowly fading surface.
type glyphRain struct {
	base
	rain *rain
	face text.Face
	hue  float64
}

func newGlyphRain(env Env) *glyphRain {
	return &glyphRain{
		base: newBase(env, show.GlyphRain),
		face: text.NewGoXFace(basicfont.Face7x13),
	}
}

func (m *glyphRain) Start(ctx context.Context, s show.Surface) error {
	m.begin(s)
	target, err := m.target()
	if err != nil {
		return m.fail(err)
	}
	target.Clear()
	m.rain = newRain(config.GlyphPitch, config.GlyphStep, config.GlyphJitter, m.env.Particles.Seed)
	m.rain.layout(s.Size())
	m.hold(show.ResourceBuffer, func() { m.rain = nil })
	m.run(m.tick)
	return nil
}

func (m *glyphRain) Stop() { m.teardown() }

func (m *glyphRain) OnResize() {
	if m.rain == nil || m.surface == nil {
		return
	}
	m.rain.layout(m.surface.Size())
	if t := m.surface.Target(); t != nil {
		t.Clear()
	}
}

func (m *glyphRain) tick(frame.Tick) {
	target := m.surface.Target()
	if target == nil {
		m.report(errors.New("surface target released"))
		return
	}
	w, h := m.surface.Size()
	fade := config.GlyphFade * 255
	vector.DrawFilledRect(target, 0, 0, float32(w), float32(h), color.RGBA{A: uint8(fade)}, false)

	speed, value := 1.0, 0.8
	if m.boost {
		speed, value = config.GlyphBoost, 1
	}
	m.hue += config.ColorShift
	clr := hsvColor(120+m.hue*360, 0.8, value)

	op := &text.DrawOptions{}
	for i, y := range m.rain.ys {
		op.GeoM.Reset()
		op.GeoM.Translate(float64(i*m.rain.pitch), y)
		op.ColorScale.Reset()
		op.ColorScale.ScaleWithColor(clr)
		text.Draw(target, m.rain.glyph(), m.face, op)
	}
	m.rain.advance(speed)
}
