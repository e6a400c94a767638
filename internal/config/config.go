package config

import "time"

const (
	WindowWidth  = 1024
	WindowHeight = 640
	WindowTitle  = "show - 1-4: switch mode, Space/mouse: boost, Tab: status, Esc/Q: quit"

	// Frame clock
	MaxFrameDelta = 33 * time.Millisecond

	// Audio analysis
	VisualRingSize = 8192
	FFTSize        = 2048
	GainBin        = 4
	MinDecibels    = -100.0
	MaxDecibels    = -30.0
	SynthFrequency = 86.0
	SynthPulse     = 0.25
	SynthLevel     = 0.05
	SampleRate     = 44100

	// Particle field
	ParticleCount    = 200_000
	ParticleSeed     = 1
	SeedRadius       = 1.8
	FieldBound       = 2.0
	Damping          = 0.995
	SwirlStrength    = 0.002
	CenterStrength   = 0.0004
	GainSwirl        = 4.0
	BoostSwirl       = 2.0
	ParticleSize     = 1.5
	ParticleViewSize = 0.5

	// Portal rings
	PortalStep  = 0.016
	PortalRings = 6
	PortalBoost = 3.0
	// PortalPhase offsets each ring's sin(t) pulse.
	PortalPhase = 0.9

	// Silhouette
	TiltRange      = 0.6
	CameraDistance = 3.5

	// Glyph rain
	GlyphPitch  = 14
	GlyphStep   = 14.0
	GlyphJitter = 4.0
	GlyphFade   = 0.08
	GlyphBoost  = 2.0
	ColorShift  = 0.01
)
