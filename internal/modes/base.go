package modes

import (
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/iburimskiy/show-engine/internal/config"
	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/show"
)

// base carries the lifecycle shared by every mode: a release stack filled
// while starting and unwound by Stop, the frame loop, boost and loss
// reporting.
type base struct {
	env     Env
	name    show.Name
	log     *zap.Logger
	surface show.Surface
	loop    *frame.Loop
	lost    func(error)
	boost   bool
	release []releaser
}

type releaser struct {
	kind string
	free func()
}

func newBase(env Env, name show.Name) base {
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	return base{env: env, name: name, log: env.Log.With(zap.String("mode", string(name)))}
}

func (b *base) OnLost(fn func(error)) { b.lost = fn }

func (b *base) OnBoost(active bool) { b.boost = active }

// begin binds the surface and arranges for it to be cleared on teardown.
func (b *base) begin(s show.Surface) {
	b.surface = s
	b.hold("", func() {
		if t := s.Target(); t != nil {
			t.Clear()
		}
	})
}

// hold records a resource to free on teardown. An empty kind is not
// counted.
func (b *base) hold(kind string, free func()) {
	if kind != "" {
		b.env.Resources.Acquire(kind)
	}
	b.release = append(b.release, releaser{kind: kind, free: free})
}

// teardown frees everything in reverse order. Running it twice is a no-op.
func (b *base) teardown() {
	for i := len(b.release) - 1; i >= 0; i-- {
		r := b.release[i]
		r.free()
		if r.kind != "" {
			b.env.Resources.Release(r.kind)
		}
	}
	b.release = nil
	b.loop = nil
	b.surface = nil
}

// fail tears down a partial start and returns err.
func (b *base) fail(err error) error {
	b.teardown()
	return err
}

// target returns the surface image or a device error.
func (b *base) target() (*ebiten.Image, error) {
	if b.surface == nil {
		return nil, fmt.Errorf("%s: %w: no surface", b.name, show.ErrDeviceUnavailable)
	}
	t := b.surface.Target()
	if t == nil {
		return nil, fmt.Errorf("%s: %w: surface has no graphics context", b.name, show.ErrDeviceUnavailable)
	}
	return t, nil
}

func (b *base) compile(src []byte) (*ebiten.Shader, error) {
	s, err := ebiten.NewShader(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", b.name, show.ErrShaderLink, err)
	}
	b.hold(show.ResourceShader, s.Deallocate)
	return s, nil
}

// run enters the frame loop. It is the last step of a start.
func (b *base) run(fn frame.Callback) {
	if b.env.Frames == nil {
		return
	}
	loop := b.env.Frames.Loop(config.MaxFrameDelta, fn)
	b.loop = loop
	b.hold(show.ResourceFrameLoop, loop.Stop)
}

// report hands a post-start failure to the controller. Without one the
// mode stops itself.
func (b *base) report(err error) {
	if !errors.Is(err, show.ErrDeviceLost) {
		err = fmt.Errorf("%w: %w", show.ErrDeviceLost, err)
	}
	if b.lost != nil {
		b.lost(err)
		return
	}
	b.log.Error("mode lost", zap.Error(err))
	b.teardown()
}

func seconds(d time.Duration) float32 { return float32(d.Seconds()) }
