package modes

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/show-engine/internal/config"
	"github.com/iburimskiy/show-engine/internal/frame"
	"github.com/iburimskiy/show-engine/internal/show"
)

//go:embed shaders/silhouette.kage
var silhouetteShader []byte

// silhouetteMode raymarches a head; device tilt orbits the camera around it.
type silhouetteMode struct {
	base
	shader  *ebiten.Shader
	tilt    TiltSource
	elapsed float64
	op      ebiten.DrawRectShaderOptions
}

func newSilhouetteMode(env Env) *silhouetteMode {
	return &silhouetteMode{base: newBase(env, show.SilhouetteIllusion)}
}

func (m *silhouetteMode) Start(ctx context.Context, s show.Surface) error {
	m.begin(s)
	if m.env.Tilt == nil {
		return m.fail(fmt.Errorf("silhouette-illusion: %w: no tilt source", show.ErrDeviceUnavailable))
	}
	if err := m.env.Tilt.Open(); err != nil {
		return m.fail(deviceErr("silhouette-illusion: tilt", err))
	}
	m.tilt = m.env.Tilt
	m.hold(show.ResourceTilt, func() {
		m.tilt.Close()
		m.tilt = nil
	})

	if _, err := m.target(); err != nil {
		return m.fail(err)
	}
	shader, err := m.compile(silhouetteShader)
	if err != nil {
		return m.fail(err)
	}
	m.shader = shader
	m.elapsed = 0
	m.run(m.tick)
	return nil
}

func (m *silhouetteMode) Stop() { m.teardown() }

func (m *silhouetteMode) OnResize() {}

func (m *silhouetteMode) tick(t frame.Tick) {
	target := m.surface.Target()
	if target == nil {
		m.report(errors.New("surface target released"))
		return
	}
	m.elapsed += t.Delta.Seconds()
	x, y := m.tilt.Tilt()
	w, h := m.surface.Size()
	m.op.Uniforms = silhouetteUniforms(m.elapsed, w, h, x, y, m.boost)
	target.DrawRectShader(w, h, m.shader, &m.op)
}

// silhouetteUniforms maps tilt in [-1, 1] onto an orbit of the camera
// around the head, clamped to TiltRange radians per axis.
func silhouetteUniforms(elapsed float64, w, h int, tx, ty float64, boost bool) map[string]any {
	rim := float32(1)
	if boost {
		rim = 2
	}
	eye := cameraOrigin(tx, ty)
	return map[string]any{
		"Time":       float32(elapsed),
		"Resolution": []float32{float32(w), float32(h)},
		"Eye":        []float32{float32(eye[0]), float32(eye[1]), float32(eye[2])},
		"Rim":        rim,
	}
}

// cameraOrigin places the camera on a sphere of radius CameraDistance
// around the head. The shader aims every ray back at the origin.
func cameraOrigin(tx, ty float64) [3]float64 {
	yaw := max(-1, min(1, tx)) * config.TiltRange
	pitch := max(-1, min(1, ty)) * config.TiltRange
	d := config.CameraDistance
	return [3]float64{
		d * math.Sin(yaw) * math.Cos(pitch),
		d * math.Sin(pitch),
		d * math.Cos(yaw) * math.Cos(pitch),
	}
}
