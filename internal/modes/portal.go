package modes

import (
	"context"
	_ "embed"
	"errors"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/show-engine/internal/config"
	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/show"
)

//go:embed shaders/portal.kage
var portalShader []byte

// portalMode draws concentric rings whose radii pulse with sin(t), summed
// additively onto a cleared target. Time advances by a fixed step per
// frame, faster while boosted.
type portalMode struct {
	base
	shader *ebiten.Shader
	time   float64
	op     ebiten.DrawRectShaderOptions
}

func newPortalMode(env Env) *portalMode {
	return &portalMode{base: newBase(env, show.PortalRings)}
}

func (m *portalMode) Start(ctx context.Context, s show.Surface) error {
	m.begin(s)
	if _, err := m.target(); err != nil {
		return m.fail(err)
	}
	shader, err := m.compile(portalShader)
	if err != nil {
		return m.fail(err)
	}
	m.shader = shader
	m.time = 0
	m.op = portalOptions()
	m.run(m.tick)
	return nil
}

func (m *portalMode) Stop() { m.teardown() }

func (m *portalMode) OnResize() {}

// advance moves the animation clock one frame.
func (m *portalMode) advance() float64 {
	step := config.PortalStep
	if m.boost {
		step *= config.PortalBoost
	}
	m.time += step
	return m.time
}

func (m *portalMode) tick(frame.Tick) {
	target := m.surface.Target()
	if target == nil {
		m.report(errors.New("surface target released"))
		return
	}
	t := m.advance()
	w, h := m.surface.Size()
	m.op.Uniforms = portalUniforms(t, w, h, m.env.Stats.Gain())
	target.Clear()
	target.DrawRectShader(w, h, m.shader, &m.op)
}

func portalOptions() ebiten.DrawRectShaderOptions {
	return ebiten.DrawRectShaderOptions{Blend: ebiten.BlendLighter}
}

func portalUniforms(t float64, w, h int, gain float64) map[string]any {
	return map[string]any{
		"Time":       float32(t),
		"Resolution": []float32{float32(w), float32(h)},
		"Rings":      float32(config.PortalRings),
		"Gain":       float32(gain),
		"Phase":      float32(config.PortalPhase),
	}
}
