package scene

import "github.com/charmbracelet/harmonica"

// Eased channels.
const (
	easeSize = iota
	easeGlow
	easeChannels
)

// easing moves a fixed set of values toward per-frame targets on a spring.
type easing struct {
	spring harmonica.Spring
	pos    [easeChannels]float64
	vel    [easeChannels]float64
}

func newEasing(fps int, frequency, damping float64) *easing {
	return &easing{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

func (e *easing) follow(ch int, target float64) float64 {
	e.pos[ch], e.vel[ch] = e.spring.Update(e.pos[ch], e.vel[ch], target)
	return e.pos[ch]
}

func (e *easing) snap(ch int, v float64) {
	e.pos[ch] = v
	e.vel[ch] = 0
}

func (e *easing) value(ch int) float64 { return e.pos[ch] }
