package modes

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/iburimskiy/show-engine/internal/audio"
	"github.com/iburimskiy/show-engine/internal/config"
	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/show"
)

//go:embed shaders/particle.kage
var particleShader []byte

// One quad per particle; uint16 indices cap a batch at this many quads.
const maxQuads = 16383

// particleMode is an audio-reactive swirl of many particles.
type particleMode struct {
	base
	ctx     context.Context
	cancel  context.CancelFunc
	sampler *audio.Sampler
	field   *ParticleField
	shader  *ebiten.Shader
	verts   []ebiten.Vertex
	indices []uint16
	op      ebiten.DrawTrianglesShaderOptions
}

func newParticleMode(env Env) *particleMode {
	return &particleMode{base: newBase(env, show.ParticleField)}
}

func (m *particleMode) Start(ctx context.Context, s show.Surface) error {
	m.begin(s)

	a := m.env.Analysis
	sampler, err := audio.OpenSampler(ctx, m.env.Audio, audio.NewAnalyzer(a.FFTSize, a.Bin, a.MinDB, a.MaxDB))
	if err != nil {
		return m.fail(deviceErr("particle-field: audio", err))
	}
	m.sampler = sampler
	m.hold(show.ResourceAudio, func() {
		if err := sampler.Close(); err != nil {
			m.log.Warn("audio close failed", zap.Error(err))
		}
		m.sampler = nil
	})

	if _, err := m.target(); err != nil {
		return m.fail(err)
	}

	p := m.env.Particles
	m.field = NewParticleField(p.Count, config.SeedRadius, p.Seed, SimParams{
		Swirl:     config.SwirlStrength,
		Center:    config.CenterStrength,
		Damping:   config.Damping,
		GainSwirl: config.GainSwirl,
		Bound:     config.FieldBound,
	}, p.Workers)
	m.hold(show.ResourceBuffer, func() { m.field = nil })

	shader, err := m.compile(particleShader)
	if err != nil {
		return m.fail(err)
	}
	m.shader = shader

	m.verts, m.indices = quadBatch(min(p.Count, maxQuads))
	m.hold(show.ResourceBuffer, func() { m.verts, m.indices = nil, nil })

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.hold("", func() { m.cancel() })

	m.run(m.tick)
	m.log.Debug("particle field started", zap.Int("particles", p.Count))
	return nil
}

func (m *particleMode) Stop() { m.teardown() }

// OnResize needs nothing: the projection reads the surface size each frame.
func (m *particleMode) OnResize() {}

func (m *particleMode) tick(t frame.Tick) {
	if err := m.sampler.Err(); err != nil {
		m.report(fmt.Errorf("audio input: %w", err))
		return
	}
	target := m.surface.Target()
	if target == nil {
		m.report(errors.New("surface target released"))
		return
	}

	gain := m.sampler.Sample()
	m.env.Stats.SetGain(gain)
	u := FrameUniform{DeltaTime: seconds(t.Delta), Gain: float32(gain), Boost: 1}
	if m.boost {
		u.Boost = config.BoostSwirl
	}
	if err := m.field.Step(m.ctx, u); err != nil {
		if !errors.Is(err, context.Canceled) {
			m.report(err)
		}
		return
	}
	m.draw(target, gain)
}

func (m *particleMode) draw(target *ebiten.Image, gain float64) {
	target.Clear()
	w, h := m.surface.Size()
	proj := newProjection(w, h, config.ParticleViewSize, float32(config.ParticleSize*m.surface.PixelRatio()))

	r, g, b := hsv(200+gain*140, 0.7, 1)
	m.op.Blend = ebiten.BlendLighter
	m.op.Uniforms = map[string]any{"Glow": float32(0.6 + gain)}

	q := 0
	flush := func() {
		if q > 0 {
			target.DrawTrianglesShader(m.verts[:q*4], m.indices[:q*6], m.shader, &m.op)
			q = 0
		}
	}
	for i := 0; i < m.field.Len(); i++ {
		x, y := m.field.Position(i)
		sx, sy, ok := proj.place(x, y)
		if !ok {
			continue
		}
		br := 0.35 + 0.65*brightness(x, y)
		proj.quad(m.verts[q*4:q*4+4], sx, sy, float32(r)*br, float32(g)*br, float32(b)*br)
		q++
		if q*4 == len(m.verts) {
			flush()
		}
	}
	flush()
}

// projection maps field coordinates to surface pixels, keeping the field
// square and centred.
type projection struct {
	cx, cy, scale, half float32
	w, h               float32
}

func newProjection(w, h int, view float64, size float32) projection {
	return projection{
		cx:    float32(w) / 2,
		cy:    float32(h) / 2,
		scale: float32(float64(min(w, h)) / 2 * view),
		half:  size / 2,
		w:     float32(w),
		h:     float32(h),
	}
}

// place reports the pixel centre of (x, y) and whether it is on screen.
func (p projection) place(x, y float32) (float32, float32, bool) {
	sx := p.cx + x*p.scale
	sy := p.cy - y*p.scale
	if sx < -p.half || sy < -p.half || sx > p.w+p.half || sy > p.h+p.half {
		return 0, 0, false
	}
	return sx, sy, true
}

func (p projection) quad(v []ebiten.Vertex, sx, sy, r, g, b float32) {
	corners := [4][2]float32{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	for i, c := range corners {
		v[i] = ebiten.Vertex{
			DstX:   sx + c[0]*p.half,
			DstY:   sy + c[1]*p.half,
			SrcX:   c[0] + 1,
			SrcY:   c[1] + 1,
			ColorR: r,
			ColorG: g,
			ColorB: b,
			ColorA: 1,
		}
	}
}

// quadBatch allocates vertex storage for n quads and the fixed index list
// that draws them as two triangles each.
func quadBatch(n int) ([]ebiten.Vertex, []uint16) {
	n = max(n, 1)
	verts := make([]ebiten.Vertex, n*4)
	indices := make([]uint16, 0, n*6)
	for i := 0; i < n; i++ {
		o := uint16(i * 4)
		indices = append(indices, o, o+1, o+2, o+1, o+3, o+2)
	}
	return verts, indices
}
