package game

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const help = "1-4: mode  Space/mouse: boost  Tab: status  Esc/Q: quit"

func (g *Game) drawStatus(screen *ebiten.Image) {
	lines := g.statusLines(ebiten.ActualFPS(), time.Since(g.start))
	vector.DrawFilledRect(screen, 8, 8, 420, float32(16*len(lines)+8), color.RGBA{A: 160}, false)
	for i, line := range lines {
		ebitenutil.DebugPrintAt(screen, line, 14, 12+16*i)
	}
}

// statusLines is the overlay text: mode and state, then timing and
// resources, then the last error if any.
func (g *Game) statusLines(fps float64, uptime time.Duration) []string {
	mode := string(g.ctrl.Current())
	if mode == "" {
		mode = "-"
	}
	boost := ""
	if g.boosting {
		boost = "  BOOST"
	}
	lines := []string{
		fmt.Sprintf("mode: %s (%s)%s", mode, g.ctrl.State(), boost),
		fmt.Sprintf("fps: %.1f  gain: %.2f  up: %s", fps, g.stats.Gain(), formatDuration(uptime)),
		fmt.Sprintf("resources: %d live, %d peak %s", g.res.Live(), g.res.Peak(), strings.Join(g.res.Kinds(), ",")),
		help,
	}
	if g.lastErr != nil {
		lines = append(lines, "error: "+g.lastErr.Error())
	}
	return lines
}

// formatDuration formats a duration as MM:SS
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
