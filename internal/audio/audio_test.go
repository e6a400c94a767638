package audio

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSize = 2048
	testBin  = 4
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(testSize, testBin, -100, -30)
}

func sine(n, bin int, amp float64) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		v := amp * math.Sin(2*math.Pi*float64(bin)*float64(i)/float64(n))
		out[i] = [2]float64{v, v}
	}
	return out
}

func TestGainSilenceIsZero(t *testing.T) {
	a := newTestAnalyzer()
	assert.Equal(t, 0.0, a.Gain(make([][2]float64, testSize)))
	assert.Equal(t, 0.0, a.Gain(nil))
}

func TestGainFullScaleIsOne(t *testing.T) {
	a := newTestAnalyzer()
	assert.InDelta(t, 1.0, a.Gain(sine(testSize, testBin, 1)), 1e-9)
}

func TestGainFullScaleOutsideBinSaturates(t *testing.T) {
	a := newTestAnalyzer()
	dc := make([][2]float64, testSize)
	alt := make([][2]float64, testSize)
	half := make([][2]float64, testSize)
	for i := range dc {
		dc[i] = [2]float64{1, 1}
		v := 1.0
		if i%2 == 1 {
			v = -1
		}
		alt[i] = [2]float64{v, v}
		half[i] = [2]float64{0.5, 0.5}
	}
	assert.Equal(t, 1.0, a.Gain(dc))
	assert.Equal(t, 1.0, a.Gain(alt))
	assert.InDelta(t, 0.5, a.Gain(half), 1e-9)
}

func TestGainGrowsWithAmplitude(t *testing.T) {
	a := newTestAnalyzer()
	quiet := a.Gain(sine(testSize, testBin, 0.0005))
	loud := a.Gain(sine(testSize, testBin, 0.005))
	assert.Greater(t, quiet, 0.0)
	assert.Less(t, quiet, loud)
	assert.Less(t, loud, 1.0)
}

func TestGainAlwaysInUnitRange(t *testing.T) {
	a := newTestAnalyzer()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		n := rng.Intn(3 * testSize)
		buf := make([][2]float64, n)
		scale := math.Pow(10, float64(rng.Intn(8)-4))
		for j := range buf {
			buf[j] = [2]float64{(rng.Float64()*2 - 1) * scale, (rng.Float64()*2 - 1) * scale}
		}
		g := a.Gain(buf)
		assert.GreaterOrEqual(t, g, 0.0)
		assert.LessOrEqual(t, g, 1.0)
	}

	nan := make([][2]float64, testSize)
	nan[10] = [2]float64{math.NaN(), 0}
	assert.Equal(t, 0.0, a.Gain(nan))

	inf := make([][2]float64, testSize)
	inf[10] = [2]float64{math.Inf(1), math.Inf(1)}
	g := a.Gain(inf)
	assert.True(t, g >= 0 && g <= 1)
}

func TestTapSnapshotChronological(t *testing.T) {
	tap := NewTap(nil, 4)
	assert.Empty(t, tap.Snapshot(3))

	for i := 1; i <= 6; i++ {
		tap.Record([][2]float64{{float64(i), 0}})
	}
	got := tap.Snapshot(10)
	require.Len(t, got, 4)
	assert.Equal(t, []float64{3, 4, 5, 6}, []float64{got[0][0], got[1][0], got[2][0], got[3][0]})

	got = tap.Snapshot(2)
	assert.Equal(t, 5.0, got[0][0])
	assert.Equal(t, 6.0, got[1][0])
}

func TestSynthSamplerProducesGain(t *testing.T) {
	clock := time.Unix(0, 0)
	dev := &SynthDevice{
		SampleRate: 44100,
		Frequency:  float64(testBin) * 44100 / testSize,
		Pulse:      0,
		Level:      0.05,
		Now:        func() time.Time { return clock },
	}
	s, err := OpenSampler(context.Background(), dev, newTestAnalyzer())
	require.NoError(t, err)
	defer s.Close()

	g := s.Sample()
	assert.Greater(t, g, 0.5)
	assert.LessOrEqual(t, g, 1.0)
	assert.NoError(t, s.Err())

	clock = clock.Add(20 * time.Millisecond)
	g = s.Sample()
	assert.Greater(t, g, 0.5)
}

func TestOpenSamplerFailures(t *testing.T) {
	_, err := OpenSampler(context.Background(), nil, newTestAnalyzer())
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = OpenSampler(context.Background(), &SynthDevice{}, newTestAnalyzer())
	assert.ErrorIs(t, err, ErrNoDevice)

	denied := &FileDevice{Pick: func(context.Context) (string, error) {
		return "", ErrPermissionDenied
	}}
	_, err = OpenSampler(context.Background(), denied, newTestAnalyzer())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFileDeviceMissingFile(t *testing.T) {
	dev := &FileDevice{Path: filepath.Join(t.TempDir(), "missing.wav")}
	_, err := dev.Open(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = (&FileDevice{}).Open(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestSynthOpenHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&SynthDevice{SampleRate: 44100, Frequency: 86}).Open(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
