// Package colormath implements the pure sRGB-to-Hue-gamut color math:
// gamma linearization, CIE xy chromaticity, gamut membership, and
// out-of-gamut projection onto a bulb's reproducible triangle.
package colormath

import "math"

// Color is a CIE xy chromaticity point with brightness, as understood by
// the bridge's "xy" color mode. x and y are in [0,1]; bri is in [0,1].
type Color struct {
	X, Y, Bri float64
}

// Black is the zero Color; it is exact-equal to any other zeroed Color,
// which is what lets Light Model skip redundant "off" updates.
var Black = Color{}

// Triangle is a bulb's reproducible gamut in CIE xy space, defined by its
// three vertices.
type Triangle struct {
	Red, Green, Blue Color
}

// GamutA, GamutB and GamutC are the three canonical Hue gamuts. Vertex
// values are taken from Philips' published gamut tables.
var (
	GamutA = Triangle{
		Red:   Color{X: 0.704, Y: 0.296},
		Green: Color{X: 0.2151, Y: 0.7106},
		Blue:  Color{X: 0.138, Y: 0.08},
	}
	GamutB = Triangle{
		Red:   Color{X: 0.675, Y: 0.322},
		Green: Color{X: 0.409, Y: 0.518},
		Blue:  Color{X: 0.167, Y: 0.04},
	}
	GamutC = Triangle{
		Red:   Color{X: 0.6915, Y: 0.3083},
		Green: Color{X: 0.17, Y: 0.7},
		Blue:  Color{X: 0.1532, Y: 0.0475},
	}
	// GamutFallback is assigned to an unrecognized model id. It is a
	// degenerate right triangle that makes the inclusion test accept any
	// non-negative point summing to <= 1, so projection becomes a no-op.
	GamutFallback = Triangle{
		Red:   Color{X: 1, Y: 0},
		Green: Color{X: 0, Y: 1},
		Blue:  Color{X: 0, Y: 0},
	}
)

// SRGBToColor converts an sRGB sample (each channel in [0,1]) into a
// gamut-constrained Color. See spec component 4.A for the algorithm.
func SRGBToColor(r, g, b float64, gamut Triangle) Color {
	if r+g+b == 0 {
		return Color{}
	}

	rl := gammaExpand(r)
	gl := gammaExpand(g)
	bl := gammaExpand(b)

	X := 0.664511*rl + 0.154324*gl + 0.162028*bl
	Y := 0.283881*rl + 0.668433*gl + 0.047685*bl
	Z := 0.000088*rl + 0.072310*gl + 0.986039*bl

	sum := X + Y + Z
	var x, y float64
	if sum != 0 {
		x = X / sum
		y = Y / sum
	}
	bri := math.Max(rl, math.Max(gl, bl))

	if math.IsNaN(x) {
		x = 0
	}
	if math.IsNaN(y) {
		y = 0
	}
	if math.IsNaN(bri) {
		bri = 0
	}

	c := Color{X: x, Y: y, Bri: bri}
	if !gamut.Contains(c) {
		c.X, c.Y = gamut.Project(c.X, c.Y)
	}
	return c
}

func gammaExpand(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return c / 12.92
}

// Contains reports whether c's (x,y) lies inside the triangle, using a
// barycentric test against the red vertex. Points on an edge are
// considered inside, with a 1e-9 tolerance so that points Project places on
// the perimeter are not rejected by floating-point rounding.
func (t Triangle) Contains(c Color) bool {
	const eps = 1e-9
	s, u := barycentric(t, c.X, c.Y)
	return s >= -eps && u >= -eps && s+u <= 1+eps
}

// barycentric returns the (s, t) parameters of point (x,y) expressed in the
// basis of edges red->green and red->blue.
func barycentric(t Triangle, x, y float64) (s, u float64) {
	v0x, v0y := t.Green.X-t.Red.X, t.Green.Y-t.Red.Y
	v1x, v1y := t.Blue.X-t.Red.X, t.Blue.Y-t.Red.Y
	v2x, v2y := x-t.Red.X, y-t.Red.Y

	denom := v0x*v1y - v1x*v0y
	if denom == 0 {
		return -1, -1
	}
	s = (v2x*v1y - v1x*v2y) / denom
	u = (v0x*v2y - v2x*v0y) / denom
	return s, u
}

// Project returns (x,y) unchanged when it already lies inside the triangle;
// otherwise it returns the closest point on the triangle's perimeter.
// Ties between candidate edges are broken in the order red->green,
// blue->red, green->blue.
func (t Triangle) Project(x, y float64) (px, py float64) {
	if t.Contains(Color{X: x, Y: y}) {
		return x, y
	}

	type edge struct{ ax, ay, bx, by float64 }
	edges := [3]edge{
		{t.Red.X, t.Red.Y, t.Green.X, t.Green.Y},
		{t.Blue.X, t.Blue.Y, t.Red.X, t.Red.Y},
		{t.Green.X, t.Green.Y, t.Blue.X, t.Blue.Y},
	}

	bestDist := math.Inf(1)
	for _, e := range edges {
		cx, cy := closestOnSegment(e.ax, e.ay, e.bx, e.by, x, y)
		d := (cx-x)*(cx-x) + (cy-y)*(cy-y)
		if d < bestDist {
			bestDist = d
			px, py = cx, cy
		}
	}
	return px, py
}

func closestOnSegment(ax, ay, bx, by, x, y float64) (float64, float64) {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return ax, ay
	}
	t := ((x-ax)*dx + (y-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return ax + t*dx, ay + t*dy
}
