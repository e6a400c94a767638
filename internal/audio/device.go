package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/ncruces/zenity"
)

var (
	// ErrPermissionDenied means the user or environment refused access.
	ErrPermissionDenied = errors.New("audio: permission denied")
	// ErrNoDevice means no usable input could be opened.
	ErrNoDevice = errors.New("audio: device unavailable")
)

// Device opens a live audio input.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open audio input.
type Stream interface {
	// Snapshot returns up to the last n samples, oldest first.
	Snapshot(n int) [][2]float64
	// Err reports a failure of the underlying input after it was opened.
	Err() error
	Close() error
}

// FileDevice plays a decoded audio file in a loop through the speaker and
// exposes what is being played as its input. Pick, when set and Path is
// empty, asks for the file.
type FileDevice struct {
	Path     string
	Pick     func(ctx context.Context) (string, error)
	RingSize int
}

// ZenityPicker returns a file picker backed by a native dialog. Cancelling
// the dialog is reported as ErrPermissionDenied.
func ZenityPicker() func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		filename, err := zenity.SelectFile(
			zenity.Context(ctx),
			zenity.Title("Open Audio File"),
			zenity.FileFilters{{
				Name:     "Audio",
				Patterns: []string{"*.wav", "*.mp3", "*.flac"},
			}},
		)
		if err != nil {
			if errors.Is(err, zenity.ErrCanceled) {
				return "", fmt.Errorf("%w: file selection cancelled", ErrPermissionDenied)
			}
			return "", fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		return filename, nil
	}
}

func (d *FileDevice) Open(ctx context.Context) (Stream, error) {
	path := d.Path
	if path == "" && d.Pick != nil {
		var err error
		if path, err = d.Pick(ctx); err != nil {
			return nil, err
		}
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no audio file configured", ErrNoDevice)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		_ = f.Close()
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrNoDevice, ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: decode %s: %v", ErrNoDevice, path, err)
	}

	if err := initSpeaker(); err != nil {
		_ = streamer.Close()
		_ = f.Close()
		return nil, fmt.Errorf("%w: speaker: %v", ErrNoDevice, err)
	}

	// Prepare audio chain: streamer -> loop -> resample -> tap -> ctrl
	var src beep.Streamer = beep.Loop(-1, streamer)
	if format.SampleRate != outputRate {
		src = beep.Resample(4, format.SampleRate, outputRate, src)
	}
	tap := NewTap(src, ringSize(d.RingSize))
	ctrl := &beep.Ctrl{Streamer: tap}
	speaker.Play(ctrl)

	return &fileStream{file: f, streamer: streamer, tap: tap, ctrl: ctrl}, nil
}

type fileStream struct {
	file     *os.File
	streamer beep.StreamSeekCloser
	tap      *Tap
	ctrl     *beep.Ctrl
	once     sync.Once
}

func (s *fileStream) Snapshot(n int) [][2]float64 { return s.tap.Snapshot(n) }

func (s *fileStream) Err() error { return s.streamer.Err() }

func (s *fileStream) Close() error {
	var err error
	s.once.Do(func() {
		speaker.Lock()
		s.ctrl.Streamer = nil
		speaker.Unlock()
		err = errors.Join(s.streamer.Close(), s.file.Close())
	})
	return err
}

const outputRate = beep.SampleRate(44100)

var (
	speakerMu   sync.Mutex
	speakerDone bool
)

// initSpeaker initializes the shared output once; all file streams are
// resampled to outputRate so it never needs re-initializing.
func initSpeaker() error {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerDone {
		return nil
	}
	if err := speaker.Init(outputRate, outputRate.N(time.Second/20)); err != nil {
		return err
	}
	speakerDone = true
	return nil
}

func ringSize(n int) int {
	if n <= 0 {
		return 8192
	}
	return n
}

// SynthDevice generates a low tone whose amplitude pulses slowly. It needs
// no hardware and produces samples at wall-clock pace as they are read.
type SynthDevice struct {
	SampleRate int
	Frequency  float64
	Pulse      float64 // amplitude modulation rate in Hz
	Level      float64
	RingSize   int

	// Now is the clock used to pace generation; defaults to time.Now.
	Now func() time.Time
}

func (d *SynthDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.SampleRate <= 0 || d.Frequency <= 0 {
		return nil, fmt.Errorf("%w: synth needs a sample rate and frequency", ErrNoDevice)
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	sr := float64(d.SampleRate)
	pos := 0
	gen := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			t := float64(pos) / sr
			amp := d.Level * (0.5 + 0.5*math.Sin(2*math.Pi*d.Pulse*t))
			v := amp * math.Sin(2*math.Pi*d.Frequency*t)
			samples[i] = [2]float64{v, v}
			pos++
		}
		return len(samples), true
	})

	s := &synthStream{
		gen:  gen,
		tap:  NewTap(gen, ringSize(d.RingSize)),
		rate: sr,
		now:  now,
		last: now(),
	}
	s.pull(len(s.tap.buffer))
	return s, nil
}

type synthStream struct {
	gen    beep.Streamer
	tap    *Tap
	rate   float64
	now    func() time.Time
	last   time.Time
	scrap  [][2]float64
	closed bool
}

func (s *synthStream) pull(n int) {
	if n <= 0 {
		return
	}
	if cap(s.scrap) < n {
		s.scrap = make([][2]float64, n)
	}
	buf := s.scrap[:n]
	got, _ := s.gen.Stream(buf)
	s.tap.Record(buf[:got])
}

func (s *synthStream) Snapshot(n int) [][2]float64 {
	if s.closed {
		return nil
	}
	now := s.now()
	due := int(now.Sub(s.last).Seconds() * s.rate)
	if due > 0 {
		s.last = now
		s.pull(min(due, len(s.tap.buffer)))
	}
	return s.tap.Snapshot(n)
}

func (s *synthStream) Err() error { return nil }

func (s *synthStream) Close() error {
	s.closed = true
	return nil
}
