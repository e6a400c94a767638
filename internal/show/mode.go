// Package show resolves mode names to handles and runs at most one of
// them against a drawing surface.
package show

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"
)

// Name identifies a mode. The set is closed.
type Name string

const (
	ParticleField      Name = "particle-field"
	PortalRings        Name = "portal-rings"
	SilhouetteIllusion Name = "silhouette-illusion"
	GlyphRain          Name = "glyph-rain"
	// Reserved is selectable but has no implementation.
	Reserved Name = "reserved"
)

var names = []Name{ParticleField, PortalRings, SilhouetteIllusion, GlyphRain, Reserved}

// Names returns every mode name in display order.
func Names() []Name {
	return append([]Name(nil), names...)
}

// ParseName reports whether s is one of the mode names.
func ParseName(s string) (Name, bool) {
	for _, n := range names {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

func (n Name) String() string { return string(n) }

// Surface is the caller-owned drawing target. Handles borrow it between
// Start and Stop and must re-read Size on resize.
type Surface interface {
	Size() (width, height int)
	PixelRatio() float64
	// Target is the image modes draw into; nil while no graphics
	// context is available.
	Target() *ebiten.Image
}

// Handle is a live mode. It owns everything it allocates until Stop
// returns.
type Handle interface {
	// Start allocates resources and enters the frame loop. On error,
	// everything acquired so far has been released.
	Start(ctx context.Context, s Surface) error
	// Stop cancels the pending frame and releases all resources. It is
	// idempotent and safe before Start.
	Stop()
	OnResize()
	OnBoost(active bool)
}

// LossReporter is implemented by handles that can fail after a successful
// Start. The controller installs fn before calling Start.
type LossReporter interface {
	OnLost(fn func(error))
}

// Loader produces a fresh handle. It must not allocate graphics resources;
// that happens in Start.
type Loader func(ctx context.Context) (Handle, error)
