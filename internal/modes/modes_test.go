package modes

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iburimskiy/show-engine/internal/audio"
	"github.com/iburimskiy/show-engine/internal/config"
	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/show"
)

var testParams = SimParams{
	Swirl:     config.SwirlStrength,
	Center:    config.CenterStrength,
	Damping:   config.Damping,
	GainSwirl: config.GainSwirl,
	Bound:     config.FieldBound,
}

// headless is a surface with no graphics context.
type headless struct{ w, h int }

func (s headless) Size() (int, int) { return s.w, s.h }

func (s headless) PixelRatio() float64 { return 1 }

func (s headless) Target() *ebiten.Image { return nil }

type deniedDevice struct{}

func (deniedDevice) Open(context.Context) (audio.Stream, error) {
	return nil, audio.ErrPermissionDenied
}

// endedStream is an audio stream that reports err and counts reads.
type endedStream struct {
	err       error
	snapshots int
	closed    int
}

func (s *endedStream) Snapshot(n int) [][2]float64 {
	s.snapshots++
	return make([][2]float64, n)
}

func (s *endedStream) Err() error { return s.err }

func (s *endedStream) Close() error {
	s.closed++
	return nil
}

type streamDevice struct{ stream *endedStream }

func (d streamDevice) Open(context.Context) (audio.Stream, error) { return d.stream, nil }

// wireSampler attaches a sampler over stream to m the way Start does,
// without a graphics context.
func wireSampler(t *testing.T, m *particleMode, stream *endedStream) {
	t.Helper()
	m.begin(headless{320, 200})
	sampler, err := audio.OpenSampler(context.Background(), streamDevice{stream}, audio.NewAnalyzer(256, 4, -100, -30))
	require.NoError(t, err)
	m.sampler = sampler
	m.hold(show.ResourceAudio, func() {
		_ = sampler.Close()
		m.sampler = nil
	})
}

type fakeTilt struct {
	err    error
	opened int
	closed int
}

func (t *fakeTilt) Open() error {
	if t.err != nil {
		return t.err
	}
	t.opened++
	return nil
}

func (t *fakeTilt) Tilt() (float64, float64) { return 0, 0 }

func (t *fakeTilt) Close() { t.closed++ }

func testEnv(res *show.ResourceCounter) Env {
	return Env{
		Frames: frame.NewScheduler(),
		Audio: &audio.SynthDevice{
			SampleRate: config.SampleRate,
			Frequency:  config.SynthFrequency,
			Level:      config.SynthLevel,
		},
		Analysis:  Analysis{FFTSize: 256, Bin: 4, MinDB: config.MinDecibels, MaxDB: config.MaxDecibels},
		Tilt:      &fakeTilt{},
		Particles: Particles{Count: 1000, Seed: 7, Workers: 2},
		Resources: res,
	}
}

func TestParticlesStayInBounds(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := NewParticleField(20_000, config.SeedRadius, 3, testParams, 4)
	ctx := context.Background()
	for step := 0; step < 400; step++ {
		u := FrameUniform{DeltaTime: 0.033, Gain: float32(step%10) / 9, Boost: 1}
		if step%3 == 0 {
			u.Boost = config.BoostSwirl
		}
		require.NoError(t, f.Step(ctx, u))
	}
	for i := 0; i < f.Len(); i++ {
		x, y := f.Position(i)
		if math.Abs(float64(x)) > config.FieldBound || math.Abs(float64(y)) > config.FieldBound {
			t.Fatalf("particle %d out of bounds: (%v, %v)", i, x, y)
		}
	}
}

func TestParticleWrapsToOppositeEdge(t *testing.T) {
	f := NewParticleField(1, 0, 1, testParams, 1)
	f.Set(0, 2.05, 0.3, 0, 0)
	require.NoError(t, f.Step(context.Background(), FrameUniform{Boost: 1}))
	x, y := f.Position(0)
	assert.Equal(t, float32(-2.0), x)
	assert.Equal(t, float32(0.3), y)

	f.Set(0, -0.5, -2.5, 0, 0)
	require.NoError(t, f.Step(context.Background(), FrameUniform{Boost: 1}))
	x, y = f.Position(0)
	assert.Equal(t, float32(-0.5), x)
	assert.Equal(t, float32(2.0), y)
}

func TestParticleSeedInsideDisk(t *testing.T) {
	f := NewParticleField(5000, config.SeedRadius, 9, testParams, 0)
	buf := f.Buffer()
	require.Len(t, buf, 5000*particleStride)
	for i := 0; i < f.Len(); i++ {
		x, y := f.Position(i)
		assert.LessOrEqual(t, math.Hypot(float64(x), float64(y)), config.SeedRadius+1e-5)
		assert.Zero(t, buf[i*particleStride+2])
		assert.Zero(t, buf[i*particleStride+3])
	}
}

func TestParticleStepIndependentOfWorkers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	a := NewParticleField(3001, config.SeedRadius, 5, testParams, 1)
	b := NewParticleField(3001, config.SeedRadius, 5, testParams, 7)
	u := FrameUniform{DeltaTime: 0.016, Gain: 0.5, Boost: 1}
	for i := 0; i < 50; i++ {
		require.NoError(t, a.Step(context.Background(), u))
		require.NoError(t, b.Step(context.Background(), u))
	}
	assert.Equal(t, a.Buffer(), b.Buffer())
}

func TestParticleSwirlRotatesCounterClockwise(t *testing.T) {
	p := testParams
	p.Center = 0
	p.Damping = 1
	f := NewParticleField(1, 0, 1, p, 1)
	f.Set(0, 1, 0, 0, 0)
	require.NoError(t, f.Step(context.Background(), FrameUniform{DeltaTime: 1, Boost: 1}))
	vx, vy := f.Buffer()[2], f.Buffer()[3]
	assert.Zero(t, vx)
	assert.InDelta(t, config.SwirlStrength, vy, 1e-9)

	// gain and boost scale the swirl
	f.Set(0, 1, 0, 0, 0)
	require.NoError(t, f.Step(context.Background(), FrameUniform{Gain: 1, Boost: 2}))
	assert.InDelta(t, config.SwirlStrength*(1+config.GainSwirl)*2, f.Buffer()[3], 1e-7)
}

func TestParticleStepCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := NewParticleField(100, 1, 1, testParams, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.Step(ctx, FrameUniform{Boost: 1}), context.Canceled)
}

func TestBrightness(t *testing.T) {
	assert.InDelta(t, 0.5, brightness(0.5, 1), 1e-6)
	assert.InDelta(t, 0.75, brightness(-0.5, 0.5), 1e-6)
	assert.Zero(t, brightness(0, 1.3))
}

func TestStopBeforeStartAndTwice(t *testing.T) {
	res := show.NewResourceCounter()
	env := testEnv(res)
	for _, h := range []show.Handle{newParticleMode(env), newPortalMode(env), newSilhouetteMode(env), newGlyphRain(env)} {
		h.Stop()
		h.Stop()
		h.OnResize()
		h.OnBoost(true)
	}
	assert.Zero(t, res.Live())
}

func TestParticleStartFailuresReleaseEverything(t *testing.T) {
	res := show.NewResourceCounter()
	env := testEnv(res)
	env.Audio = deniedDevice{}

	m := newParticleMode(env)
	err := m.Start(context.Background(), headless{640, 480})
	assert.ErrorIs(t, err, show.ErrPermissionDenied)
	assert.Zero(t, res.Live())

	env.Audio = nil
	m = newParticleMode(env)
	err = m.Start(context.Background(), headless{640, 480})
	assert.ErrorIs(t, err, show.ErrDeviceUnavailable)

	// audio opens, then the surface has no graphics context
	env = testEnv(res)
	m = newParticleMode(env)
	err = m.Start(context.Background(), headless{640, 480})
	assert.ErrorIs(t, err, show.ErrDeviceUnavailable)
	assert.Zero(t, res.Live())
	assert.Equal(t, 1, res.Peak())
	assert.Zero(t, env.Frames.Pending())
	m.Stop()
}

func TestShaderModesNeedGraphicsContext(t *testing.T) {
	res := show.NewResourceCounter()
	env := testEnv(res)
	for _, h := range []show.Handle{newPortalMode(env), newSilhouetteMode(env), newGlyphRain(env)} {
		err := h.Start(context.Background(), headless{320, 200})
		assert.ErrorIs(t, err, show.ErrDeviceUnavailable)
		h.Stop()
	}
	assert.Zero(t, res.Live())
	tilt := env.Tilt.(*fakeTilt)
	assert.Equal(t, 1, tilt.opened)
	assert.Equal(t, 1, tilt.closed)
}

func TestSilhouetteTiltFailures(t *testing.T) {
	res := show.NewResourceCounter()
	env := testEnv(res)
	env.Tilt = &fakeTilt{err: ErrTiltDenied}
	err := newSilhouetteMode(env).Start(context.Background(), headless{320, 200})
	assert.ErrorIs(t, err, show.ErrPermissionDenied)

	env.Tilt = nil
	err = newSilhouetteMode(env).Start(context.Background(), headless{320, 200})
	assert.ErrorIs(t, err, show.ErrDeviceUnavailable)
	assert.Zero(t, res.Live())
}

func TestRegisterInstallsImplementedModes(t *testing.T) {
	reg := show.NewRegistry()
	require.NoError(t, Register(reg, testEnv(nil)))
	for _, name := range []show.Name{show.ParticleField, show.PortalRings, show.SilhouetteIllusion, show.GlyphRain} {
		assert.True(t, reg.Registered(name), name)
		h, err := reg.Load(context.Background(), name)
		require.NoError(t, err)
		_, ok := h.(show.LossReporter)
		assert.True(t, ok, name)
	}
	assert.False(t, reg.Registered(show.Reserved))
}

func TestRainLayoutAndWrap(t *testing.T) {
	r := newRain(10, 5, 0, 1)
	r.layout(100, 50)
	require.Len(t, r.ys, 10)

	for i := range r.ys {
		r.ys[i] = 48
	}
	r.advance(1)
	for _, y := range r.ys {
		assert.Zero(t, y)
	}
	r.advance(2)
	for _, y := range r.ys {
		assert.Equal(t, 10.0, y)
	}

	r.layout(35, 8)
	require.Len(t, r.ys, 3)
	for _, y := range r.ys {
		assert.Zero(t, y)
	}
	r.layout(5, 8)
	assert.Len(t, r.ys, 1)
	assert.Len(t, r.glyph(), 1)
}

func TestRainJitterStaysBounded(t *testing.T) {
	r := newRain(8, 3, 4, 2)
	r.layout(80, 600)
	before := append([]float64(nil), r.ys...)
	r.advance(1)
	for i, y := range r.ys {
		if y == 0 {
			continue
		}
		d := y - before[i]
		assert.GreaterOrEqual(t, d, 3.0)
		assert.Less(t, d, 7.0)
	}
}

func TestParticleTickEndedStreamTearsDownWithoutOwner(t *testing.T) {
	res := show.NewResourceCounter()
	stream := &endedStream{err: errors.New("device unplugged")}
	m := newParticleMode(testEnv(res))
	wireSampler(t, m, stream)
	require.Equal(t, 1, res.Live())

	m.tick(frame.Tick{})
	assert.Zero(t, res.Live())
	assert.Equal(t, 1, stream.closed)
	assert.Zero(t, stream.snapshots)
	assert.Nil(t, m.sampler)

	// a later Stop is a no-op
	m.Stop()
	assert.Equal(t, 1, stream.closed)
}

func TestParticleTickEndedStreamReportsToOwner(t *testing.T) {
	res := show.NewResourceCounter()
	ended := errors.New("device unplugged")
	stream := &endedStream{err: ended}
	m := newParticleMode(testEnv(res))
	var lost []error
	m.OnLost(func(err error) { lost = append(lost, err) })
	wireSampler(t, m, stream)

	m.tick(frame.Tick{})
	require.Len(t, lost, 1)
	assert.ErrorIs(t, lost[0], show.ErrDeviceLost)
	assert.ErrorIs(t, lost[0], ended)
	assert.Zero(t, stream.snapshots)
	// the owner decides when to stop
	assert.Equal(t, 1, res.Live())

	m.Stop()
	assert.Zero(t, res.Live())
	assert.Equal(t, 1, stream.closed)
}

func TestParticleTickWithoutTargetReportsBeforeSampling(t *testing.T) {
	res := show.NewResourceCounter()
	stream := &endedStream{}
	m := newParticleMode(testEnv(res))
	var lost error
	m.OnLost(func(err error) { lost = err })
	wireSampler(t, m, stream)

	m.tick(frame.Tick{})
	assert.ErrorIs(t, lost, show.ErrDeviceLost)
	assert.NotContains(t, lost.Error(), "audio input")
	assert.Zero(t, stream.snapshots)

	m.Stop()
	assert.Zero(t, res.Live())
}

func TestPortalAdvance(t *testing.T) {
	m := newPortalMode(testEnv(nil))
	assert.InDelta(t, config.PortalStep, m.advance(), 1e-12)
	m.OnBoost(true)
	assert.InDelta(t, config.PortalStep*(1+config.PortalBoost), m.advance(), 1e-12)

	u := portalUniforms(1.5, 640, 480, 0.25)
	assert.Equal(t, float32(1.5), u["Time"])
	assert.Equal(t, []float32{640, 480}, u["Resolution"])
	assert.Equal(t, float32(0.25), u["Gain"])
	assert.Equal(t, float32(config.PortalPhase), u["Phase"])
}

func TestPortalBlendsAdditively(t *testing.T) {
	op := portalOptions()
	assert.Equal(t, ebiten.BlendLighter, op.Blend)
}

func TestSilhouetteUniformsClampTilt(t *testing.T) {
	u := silhouetteUniforms(2, 100, 100, 3, -0.5, false)
	eye := u["Eye"].([]float32)
	want := cameraOrigin(1, -0.5)
	assert.InDelta(t, want[0], eye[0], 1e-6)
	assert.InDelta(t, want[1], eye[1], 1e-6)
	assert.InDelta(t, want[2], eye[2], 1e-6)
	assert.Equal(t, float32(1), u["Rim"])
	assert.Equal(t, float32(2), silhouetteUniforms(0, 1, 1, 0, 0, true)["Rim"])
}

func TestCameraOrbitsHead(t *testing.T) {
	assert.Equal(t, [3]float64{0, 0, config.CameraDistance}, cameraOrigin(0, 0))

	for _, tilt := range [][2]float64{{1, 0}, {0, -1}, {0.5, 0.5}, {4, -4}} {
		eye := cameraOrigin(tilt[0], tilt[1])
		assert.InDelta(t, config.CameraDistance, math.Hypot(math.Hypot(eye[0], eye[1]), eye[2]), 1e-9)
	}

	right := cameraOrigin(1, 0)
	assert.InDelta(t, config.CameraDistance*math.Sin(config.TiltRange), right[0], 1e-9)
	assert.Zero(t, right[1])
	up := cameraOrigin(0, 1)
	assert.InDelta(t, config.CameraDistance*math.Sin(config.TiltRange), up[1], 1e-9)
	assert.Equal(t, cameraOrigin(1, 1), cameraOrigin(9, 9))
}

func TestQuadBatch(t *testing.T) {
	verts, idx := quadBatch(maxQuads)
	assert.Len(t, verts, maxQuads*4)
	assert.Len(t, idx, maxQuads*6)
	assert.Equal(t, []uint16{0, 1, 2, 1, 3, 2}, idx[:6])
	assert.Equal(t, uint16(maxQuads*4-1), idx[len(idx)-2])

	verts, idx = quadBatch(0)
	assert.Len(t, verts, 4)
	assert.Len(t, idx, 6)
}

func TestProjection(t *testing.T) {
	p := newProjection(800, 400, config.ParticleViewSize, 2)
	x, y, ok := p.place(0, 0)
	require.True(t, ok)
	assert.Equal(t, float32(400), x)
	assert.Equal(t, float32(200), y)

	x, y, ok = p.place(2, 2)
	require.True(t, ok)
	assert.Equal(t, float32(600), x)
	assert.Equal(t, float32(0), y)

	_, _, ok = p.place(-2, 0)
	assert.True(t, ok)
	p = newProjection(100, 100, 2, 2)
	_, _, ok = p.place(2, 0)
	assert.False(t, ok)
}

func TestDeviceErr(t *testing.T) {
	assert.ErrorIs(t, deviceErr("x", audio.ErrPermissionDenied), show.ErrPermissionDenied)
	assert.ErrorIs(t, deviceErr("x", ErrTiltDenied), show.ErrPermissionDenied)
	err := deviceErr("x", audio.ErrNoDevice)
	assert.ErrorIs(t, err, show.ErrDeviceUnavailable)
	assert.ErrorIs(t, err, audio.ErrNoDevice)
	assert.False(t, errors.Is(err, show.ErrPermissionDenied))
}

func TestHSV(t *testing.T) {
	r, g, b := hsv(0, 1, 1)
	assert.Equal(t, [3]float64{1, 0, 0}, [3]float64{r, g, b})
	r, g, b = hsv(480, 1, 1)
	assert.InDelta(t, 0, r, 1e-9)
	assert.InDelta(t, 1, g, 1e-9)
	assert.InDelta(t, 0, b, 1e-9)
	c := hsvColor(-120, 1, 1)
	assert.Equal(t, uint8(0xff), c.B)
	assert.Equal(t, uint8(0xff), c.A)
}

func TestStatsNilSafe(t *testing.T) {
	var s *Stats
	s.SetGain(0.5)
	assert.Zero(t, s.Gain())
	s = &Stats{}
	s.SetGain(0.5)
	assert.Equal(t, 0.5, s.Gain())
}
