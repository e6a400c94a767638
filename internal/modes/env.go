// Package modes holds the show's visual modes.
package modes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/iburimskiy/show-engine/internal/audio"
	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/show"
)

// ErrTiltDenied is returned by a TiltSource when orientation access is
// refused.
var ErrTiltDenied = errors.New("orientation access denied")

// TiltSource supplies two-axis device tilt in [-1, 1].
type TiltSource interface {
	Open() error
	Tilt() (x, y float64)
	Close()
}

// Analysis configures the audio analyzer built on every particle start.
type Analysis struct {
	FFTSize int
	Bin     int
	MinDB   float64
	MaxDB   float64
}

// Particles configures the particle field.
type Particles struct {
	Count   int
	Seed    uint64
	Workers int
}

// Env is what modes need from the host.
type Env struct {
	Frames    *frame.Scheduler
	Audio     audio.Device
	Analysis  Analysis
	Tilt      TiltSource
	Particles Particles
	Resources *show.ResourceCounter
	Stats     *Stats
	Log       *zap.Logger
}

// Register installs every implemented mode in reg.
func Register(reg *show.Registry, env Env) error {
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	loaders := map[show.Name]show.Loader{
		show.ParticleField: func(context.Context) (show.Handle, error) {
			return newParticleMode(env), nil
		},
		show.PortalRings: func(context.Context) (show.Handle, error) {
			return newPortalMode(env), nil
		},
		show.SilhouetteIllusion: func(context.Context) (show.Handle, error) {
			return newSilhouetteMode(env), nil
		},
		show.GlyphRain: func(context.Context) (show.Handle, error) {
			return newGlyphRain(env), nil
		},
	}
	for _, name := range show.Names() {
		loader, ok := loaders[name]
		if !ok {
			continue
		}
		if err := reg.Register(name, loader); err != nil {
			return err
		}
	}
	return nil
}

// Stats exposes the latest audio gain for the overlay. Safe for
// concurrent use; a nil Stats ignores writes.
type Stats struct {
	gain atomic.Uint64
}

func (s *Stats) SetGain(g float64) {
	if s != nil {
		s.gain.Store(math.Float64bits(g))
	}
}

func (s *Stats) Gain() float64 {
	if s == nil {
		return 0
	}
	return math.Float64frombits(s.gain.Load())
}

// deviceErr maps input failures onto the show error set.
func deviceErr(what string, err error) error {
	if errors.Is(err, audio.ErrPermissionDenied) || errors.Is(err, ErrTiltDenied) {
		return fmt.Errorf("%s: %w: %w", what, show.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%s: %w: %w", what, show.ErrDeviceUnavailable, err)
}
