package audio

import (
	"context"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyzer turns a window of samples into a gain in [0, 1]. The main term
// reads one frequency bin the way a browser analyser node reports byte
// frequency data: Blackman window, magnitude per bin, decibels mapped
// linearly from [MinDB, MaxDB] onto [0, 1]. The window's peak amplitude is
// a floor under it, so any full-scale input saturates even when its energy
// sits outside the bin (DC, Nyquist).
type Analyzer struct {
	size   int
	bin    int
	minDB  float64
	maxDB  float64
	fft    *fourier.FFT
	window []float64
	seq    []float64
	coeff  []complex128
}

// NewAnalyzer builds an analyzer for windows of size samples. bin is
// clamped into the spectrum.
func NewAnalyzer(size, bin int, minDB, maxDB float64) *Analyzer {
	bin = max(0, min(bin, size/2))
	a := &Analyzer{
		size:   size,
		bin:    bin,
		minDB:  minDB,
		maxDB:  maxDB,
		fft:    fourier.NewFFT(size),
		window: make([]float64, size),
		seq:    make([]float64, size),
		coeff:  make([]complex128, size/2+1),
	}
	for n := range a.window {
		x := 2 * math.Pi * float64(n) / float64(size)
		a.window[n] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return a
}

// Size is the number of samples analysed per call.
func (a *Analyzer) Size() int { return a.size }

// Gain analyses the newest Size() samples. Shorter inputs are zero-padded
// at the front.
func (a *Analyzer) Gain(samples [][2]float64) float64 {
	if len(samples) > a.size {
		samples = samples[len(samples)-a.size:]
	}
	pad := a.size - len(samples)
	for i := 0; i < pad; i++ {
		a.seq[i] = 0
	}
	peak := 0.0
	for i, s := range samples {
		m := (s[0] + s[1]) * 0.5
		if v := math.Abs(m); v > peak {
			peak = v
		}
		a.seq[pad+i] = m * a.window[pad+i]
	}
	return max(a.binGain(), clamp01(peak))
}

func (a *Analyzer) binGain() float64 {
	a.coeff = a.fft.Coefficients(a.coeff, a.seq)
	mag := cmplx.Abs(a.coeff[a.bin]) / float64(a.size)
	switch {
	case math.IsNaN(mag), mag <= 0:
		return 0
	case math.IsInf(mag, 1):
		return 1
	}
	db := 20 * math.Log10(mag)
	return clamp01((db - a.minDB) / (a.maxDB - a.minDB))
}

// Sampler exposes a live input as one gain value per frame.
type Sampler struct {
	stream   Stream
	analyzer *Analyzer
}

// OpenSampler opens the device. Failures carry ErrPermissionDenied or
// ErrNoDevice from the device.
func OpenSampler(ctx context.Context, dev Device, analyzer *Analyzer) (*Sampler, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	stream, err := dev.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &Sampler{stream: stream, analyzer: analyzer}, nil
}

// Sample returns the gain of the most recent analysis window.
func (s *Sampler) Sample() float64 {
	return s.analyzer.Gain(s.stream.Snapshot(s.analyzer.Size()))
}

// Err reports a failure of the input after it was opened.
func (s *Sampler) Err() error { return s.stream.Err() }

func (s *Sampler) Close() error { return s.stream.Close() }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
