// Package scene draws the animated point cloud into a terminal frame.
package scene

import (
	"math"
	"strings"
	"sync"

	"github.com/olivier-w/pulsecloud/internal/reactive"
)

// Shader-style constants of the point cloud.
const (
	cameraZ     = 2.0
	fieldOfView = 70 * math.Pi / 180
	nearPlane   = 0.1
	offsetSize  = 0.1 // displacement per unit of amplitude
	maxDistance = 2.0 // cap on any point's displacement
	vibration   = 1.0 // per-point vibration rate
	sweepRate   = 4.0 // spatial frequency of the collective sweep
)

// Options configures a Renderer.
type Options struct {
	Width, Height int    // frame size in terminal cells
	FPS           int    // frame rate the easing springs are tuned for
	Segments      [3]int // box lattice segments along x, y, z
}

// DefaultOptions returns an 80x24 frame at 60 fps.
func DefaultOptions() Options {
	return Options{Width: 80, Height: 24, FPS: 60, Segments: [3]int{48, 12, 12}}
}

type vertex struct {
	pos  reactive.Vec3
	seed float64
}

// Renderer draws a box-shaped lattice of points, displaced and rotated by
// the parameters it is given, into braille cells.
type Renderer struct {
	mu       sync.Mutex
	points   []vertex
	canvas   *canvas
	ease     *easing
	profile  colorProfile
	params   reactive.Parameters
	rotation reactive.Vec3
	output   string
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	r := &Renderer{
		points:  boxLattice(opts.Segments),
		canvas:  newCanvas(opts.Width, opts.Height),
		ease:    newEasing(opts.FPS, 6.0, 0.7),
		profile: detectColorProfile(),
	}
	r.ease.snap(easeSize, 1.5)
	return r
}

// Resize changes the frame size in cells.
func (r *Renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvas.resize(width, height)
}

// Apply stores the parameters for the next Render and advances rotation.
func (r *Renderer) Apply(p reactive.Parameters) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.params = p
	r.rotation.X += p.Rotation.X
	r.rotation.Y += p.Rotation.Y
	r.rotation.Z += p.Rotation.Z
	r.ease.follow(easeSize, p.PointSize)
	r.ease.follow(easeGlow, p.Glow)
}

// Render rasterises the point cloud with the last applied parameters.
func (r *Renderer) Render() {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.canvas
	c.clear()
	w, h := c.dots()
	if w == 0 || h == 0 {
		r.output = ""
		return
	}

	radius := int(math.Max(0, math.Round(r.ease.value(easeSize)/1.5)-1))
	rot := newRotation(r.rotation)
	for _, v := range r.points {
		p := rot.apply(displace(v, r.params))
		x, y, depth, ok := project(p, w, h)
		if !ok {
			continue
		}
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy <= radius*radius {
					c.set(x+dx, y+dy, depth)
				}
			}
		}
	}
	r.output = r.compose()
}

// View returns the last rendered frame.
func (r *Renderer) View() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.output
}

// Rotation returns the accumulated rotation angles.
func (r *Renderer) Rotation() reactive.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotation
}

func (r *Renderer) compose() string {
	c := r.canvas
	glow := clamp01(r.ease.value(easeGlow))
	hueShift := math.Mod(r.params.Phase*0.01, 1)

	var sb strings.Builder
	cw := newColorWriter(r.profile)
	for row := range c.rows {
		if row > 0 {
			cw.reset(&sb)
			sb.WriteByte('\n')
		}
		for col := range c.cols {
			ch, depth, lit := c.cell(col, row)
			if !lit {
				sb.WriteRune(ch)
				continue
			}
			// depth runs roughly from 1 (front) to 3 (back)
			near := clamp01((3 - depth) / 2)
			cw.set(&sb, rgbFromHSV(0.55+hueShift-0.15*near, 0.7, 0.35+0.45*near+0.2*glow))
			sb.WriteRune(ch)
		}
	}
	cw.reset(&sb)
	return sb.String()
}

// displace moves a point along its direction from the centre.
func displace(v vertex, p reactive.Parameters) reactive.Vec3 {
	wobble := p.Amplitude * offsetSize * math.Sin(p.Phase*vibration+v.seed*2*math.Pi)
	sweep := p.OffsetGain * offsetSize * math.Sin(p.Phase+v.pos.Y*sweepRate)
	d := math.Max(-maxDistance, math.Min(maxDistance, wobble+sweep))
	return v.pos.Scale(1 + d)
}

// project maps a world-space point to dot coordinates with the camera on the
// +z axis looking at the origin.
func project(p reactive.Vec3, w, h int) (x, y int, depth float64, ok bool) {
	depth = cameraZ - p.Z
	if depth <= nearPlane {
		return 0, 0, 0, false
	}
	f := 1 / math.Tan(fieldOfView/2)
	aspect := float64(w) / float64(h)
	ndcX := p.X * f / (aspect * depth)
	ndcY := p.Y * f / depth
	x = int(math.Floor((ndcX + 1) / 2 * float64(w)))
	y = int(math.Floor((1 - ndcY) / 2 * float64(h)))
	return x, y, depth, true
}

type rotation struct {
	m [3][3]float64
}

// newRotation builds Rz·Ry·Rx for the given angles.
func newRotation(a reactive.Vec3) rotation {
	sx, cx := math.Sincos(a.X)
	sy, cy := math.Sincos(a.Y)
	sz, cz := math.Sincos(a.Z)
	return rotation{m: [3][3]float64{
		{cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx},
		{sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx},
		{-sy, cy * sx, cy * cx},
	}}
}

func (r rotation) apply(v reactive.Vec3) reactive.Vec3 {
	return reactive.Vec3{
		X: r.m[0][0]*v.X + r.m[0][1]*v.Y + r.m[0][2]*v.Z,
		Y: r.m[1][0]*v.X + r.m[1][1]*v.Y + r.m[1][2]*v.Z,
		Z: r.m[2][0]*v.X + r.m[2][1]*v.Y + r.m[2][2]*v.Z,
	}
}

// boxLattice returns the points on the surface of a unit cube centred on the
// origin, with seg[i] segments along each axis.
func boxLattice(seg [3]int) []vertex {
	for i := range seg {
		seg[i] = max(seg[i], 1)
	}
	coord := func(i, n int) float64 { return float64(i)/float64(n) - 0.5 }

	var pts []vertex
	add := func(p reactive.Vec3) {
		i := float64(len(pts))
		seed := math.Sin(i*12.9898) * 43758.5453
		pts = append(pts, vertex{pos: p, seed: seed - math.Floor(seed)})
	}
	for _, z := range []float64{-0.5, 0.5} {
		for i := 0; i <= seg[0]; i++ {
			for j := 0; j <= seg[1]; j++ {
				add(reactive.Vec3{X: coord(i, seg[0]), Y: coord(j, seg[1]), Z: z})
			}
		}
	}
	for _, y := range []float64{-0.5, 0.5} {
		for i := 0; i <= seg[0]; i++ {
			for k := 1; k < seg[2]; k++ {
				add(reactive.Vec3{X: coord(i, seg[0]), Y: y, Z: coord(k, seg[2])})
			}
		}
	}
	for _, x := range []float64{-0.5, 0.5} {
		for j := 1; j < seg[1]; j++ {
			for k := 1; k < seg[2]; k++ {
				add(reactive.Vec3{X: x, Y: coord(j, seg[1]), Z: coord(k, seg[2])})
			}
		}
	}
	return pts
}
