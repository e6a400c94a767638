// Package input turns desktop input into the device tilt the
// silhouette mode follows.
package input

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/show-engine/internal/modes"
)

const deadzone = 0.12

// Tilt reads the left stick of the first standard gamepad, falling back
// to the cursor offset from the centre of the window. Call Tilt from the
// game goroutine.
type Tilt struct {
	enabled bool
	size    func() (int, int)

	gamepads func([]ebiten.GamepadID) []ebiten.GamepadID
	standard func(ebiten.GamepadID) bool
	axis     func(ebiten.GamepadID, ebiten.StandardGamepadAxis) float64
	cursor   func() (int, int)

	open bool
	ids  []ebiten.GamepadID
}

// NewTilt builds a tilt source. size reports the window size the cursor
// offset is measured against; a disabled source refuses to open.
func NewTilt(enabled bool, size func() (int, int)) *Tilt {
	return &Tilt{
		enabled:  enabled,
		size:     size,
		gamepads: ebiten.AppendGamepadIDs,
		standard: ebiten.IsStandardGamepadLayoutAvailable,
		axis:     ebiten.StandardGamepadAxisValue,
		cursor:   ebiten.CursorPosition,
	}
}

var _ modes.TiltSource = (*Tilt)(nil)

func (t *Tilt) Open() error {
	if !t.enabled {
		return modes.ErrTiltDenied
	}
	t.open = true
	return nil
}

func (t *Tilt) Close() { t.open = false }

// Tilt returns (x, y) in [-1, 1]; positive y tilts up. A closed source
// reports level.
func (t *Tilt) Tilt() (float64, float64) {
	if !t.open {
		return 0, 0
	}
	t.ids = t.gamepads(t.ids[:0])
	for _, id := range t.ids {
		if !t.standard(id) {
			continue
		}
		x := t.axis(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
		y := t.axis(id, ebiten.StandardGamepadAxisLeftStickVertical)
		if abs(x) > deadzone || abs(y) > deadzone {
			return clampUnit(x), clampUnit(-y)
		}
	}

	w, h := t.size()
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	cx, cy := t.cursor()
	x := (float64(cx) - float64(w)/2) / (float64(w) / 2)
	y := (float64(h)/2 - float64(cy)) / (float64(h) / 2)
	return clampUnit(x), clampUnit(y)
}

func clampUnit(v float64) float64 { return max(-1, min(1, v)) }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
