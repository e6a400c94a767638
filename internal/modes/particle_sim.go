package modes

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Particle buffer layout: x, y, vx, vy per particle.
const particleStride = 4

// FrameUniform is the per-frame input of the simulation step.
type FrameUniform struct {
	Pointer   [2]float32
	DeltaTime float32 // seconds
	Gain      float32 // audio gain in [0,1]
	Boost     float32 // 1 normally, larger while boosted
}

// SimParams tunes the particle step.
type SimParams struct {
	Swirl     float32
	Center    float32
	Damping   float32
	GainSwirl float32
	Bound     float32
}

// ParticleField is the dense particle state. The buffer is both the
// simulation storage and the per-instance render input.
type ParticleField struct {
	buf     []float32
	n       int
	params  SimParams
	workers int
}

// NewParticleField allocates n particles seeded uniformly inside a disk of
// the given radius with zero velocity.
func NewParticleField(n int, radius float64, seed uint64, params SimParams, workers int) *ParticleField {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	f := &ParticleField{
		buf:     make([]float32, n*particleStride),
		n:       n,
		params:  params,
		workers: workers,
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := 0; i < n; i++ {
		r := radius * math.Sqrt(rng.Float64())
		theta := 2 * math.Pi * rng.Float64()
		o := i * particleStride
		f.buf[o] = float32(r * math.Cos(theta))
		f.buf[o+1] = float32(r * math.Sin(theta))
	}
	return f
}

// Len is the fixed particle count.
func (f *ParticleField) Len() int { return f.n }

// Buffer exposes the interleaved storage.
func (f *ParticleField) Buffer() []float32 { return f.buf }

// Position returns particle i's position.
func (f *ParticleField) Position(i int) (float32, float32) {
	o := i * particleStride
	return f.buf[o], f.buf[o+1]
}

// Set overwrites particle i.
func (f *ParticleField) Set(i int, x, y, vx, vy float32) {
	o := i * particleStride
	f.buf[o], f.buf[o+1], f.buf[o+2], f.buf[o+3] = x, y, vx, vy
}

// Step advances every particle once. Particles are independent, so the
// range is split across workers which all finish before Step returns.
func (f *ParticleField) Step(ctx context.Context, u FrameUniform) error {
	if f.n == 0 {
		return nil
	}
	chunk := (f.n + f.workers - 1) / f.workers
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for lo := 0; lo < f.n; lo += chunk {
		lo, hi := lo, min(lo+chunk, f.n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stepRange(f.buf[lo*particleStride:hi*particleStride], f.params, u)
			return nil
		})
	}
	return g.Wait()
}

// stepRange integrates a slice of the buffer. Damping is a constant
// per-step factor regardless of DeltaTime.
func stepRange(buf []float32, p SimParams, u FrameUniform) {
	swirl := p.Swirl * (1 + u.Gain*p.GainSwirl) * u.Boost
	for o := 0; o+particleStride <= len(buf); o += particleStride {
		x, y := buf[o]-u.Pointer[0], buf[o+1]-u.Pointer[1]
		vx, vy := buf[o+2], buf[o+3]

		// rotate 90 degrees for the tangential swirl, pull towards the centre
		fx := -y*swirl - x*p.Center
		fy := x*swirl - y*p.Center

		vx = (vx + fx) * p.Damping
		vy = (vy + fy) * p.Damping

		buf[o] = wrap(buf[o]+vx*u.DeltaTime, p.Bound)
		buf[o+1] = wrap(buf[o+1]+vy*u.DeltaTime, p.Bound)
		buf[o+2] = vx
		buf[o+3] = vy
	}
}

// wrap moves a coordinate past the bound to the opposite edge.
func wrap(c, bound float32) float32 {
	switch {
	case c > bound:
		return -bound
	case c < -bound:
		return bound
	}
	return c
}

// brightness is the per-particle shading variation: fract(x*y).
func brightness(x, y float32) float32 {
	v := float64(x) * float64(y)
	return float32(v - math.Floor(v))
}
