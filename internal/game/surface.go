package game

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/show-engine/internal/show"
)

// Surface is the offscreen image modes draw into. The game owns it and
// lends it to the running mode; Draw copies it to the screen.
type Surface struct {
	w, h  int
	ratio float64
	img   *ebiten.Image
	res   *show.ResourceCounter

	alloc func(w, h int) *ebiten.Image
}

func NewSurface(res *show.ResourceCounter) *Surface {
	return &Surface{ratio: 1, res: res, alloc: ebiten.NewImage}
}

func (s *Surface) Size() (int, int) { return s.w, s.h }

func (s *Surface) PixelRatio() float64 { return s.ratio }

func (s *Surface) Target() *ebiten.Image { return s.img }

// resize reallocates the target when the size changes and reports whether
// it did. Must run on the game goroutine.
func (s *Surface) resize(w, h int, ratio float64) bool {
	if ratio > 0 {
		s.ratio = ratio
	}
	if w <= 0 || h <= 0 || (w == s.w && h == s.h && s.img != nil) {
		return false
	}
	s.Release()
	s.w, s.h = w, h
	s.img = s.alloc(w, h)
	if s.img != nil {
		s.res.Acquire(show.ResourceImage)
	}
	return true
}

// Release frees the target image.
func (s *Surface) Release() {
	if s.img == nil {
		return
	}
	s.img.Deallocate()
	s.img = nil
	s.res.Release(show.ResourceImage)
}
