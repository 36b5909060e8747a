package sketchboard

import "math"

// Direction is a cardinal exit direction of a connector.
type Direction uint8

const (
	DirRight Direction = iota
	DirLeft
	DirUp
	DirDown
)

// vec returns the unit vector for the direction.
func (d Direction) vec() Vec2 {
	switch d {
	case DirLeft:
		return Vec2{-1, 0}
	case DirUp:
		return Vec2{0, -1}
	case DirDown:
		return Vec2{0, 1}
	default:
		return Vec2{1, 0}
	}
}

// BoundaryPoint returns the point where the ray from the node's center toward
// the given point crosses the node's outline.
func BoundaryPoint(n *Node, toward Vec2) Vec2 {
	c := n.Center()
	hw, hh := n.W/2, n.H/2
	dx, dy := toward.X-c.X, toward.Y-c.Y
	if hw <= 0 || hh <= 0 || (dx == 0 && dy == 0) {
		return c
	}

	switch strategyFor(n.Kind).family {
	case outlineEllipse:
		theta := math.Atan2(dy, dx)
		return Vec2{c.X + hw*math.Cos(theta), c.Y + hh*math.Sin(theta)}

	case outlineDiamond:
		t := 1 / (math.Abs(dx)/hw + math.Abs(dy)/hh)
		return Vec2{c.X + dx*t, c.Y + dy*t}

	case outlineTriangleDown:
		// Flat top edge, apex at the bottom center.
		if dy < 0 && (dx == 0 || math.Abs(dy)/math.Abs(dx) >= hh/hw) {
			t := -hh / dy
			return Vec2{c.X + dx*t, c.Y + dy*t}
		}
		t := hw * hh / (2*hh*math.Abs(dx) + hw*dy)
		return Vec2{c.X + dx*t, c.Y + dy*t}

	default:
		var t float64
		if math.Abs(dx)/hw > math.Abs(dy)/hh {
			t = hw / math.Abs(dx)
		} else {
			t = hh / math.Abs(dy)
		}
		return Vec2{c.X + dx*t, c.Y + dy*t}
	}
}

// exitDirection picks the cardinal direction along which p deviates most from
// the node's center, normalized by the node's half extents.
func exitDirection(n *Node, p Vec2) Direction {
	c := n.Center()
	hw, hh := n.W/2, n.H/2
	if hw <= 0 {
		hw = 1
	}
	if hh <= 0 {
		hh = 1
	}
	nx := (p.X - c.X) / hw
	ny := (p.Y - c.Y) / hh
	if math.Abs(nx) >= math.Abs(ny) {
		if nx < 0 {
			return DirLeft
		}
		return DirRight
	}
	if ny < 0 {
		return DirUp
	}
	return DirDown
}

// Bezier is a cubic bezier curve from P0 to P1 with control points C1, C2.
type Bezier struct {
	P0, C1, C2, P1 Vec2
}

// Point evaluates the curve at parameter t in [0, 1].
func (b Bezier) Point(t float64) Vec2 {
	u := 1 - t
	u2 := u * u
	t2 := t * t
	return Vec2{
		X: u2*u*b.P0.X + 3*u2*t*b.C1.X + 3*u*t2*b.C2.X + t2*t*b.P1.X,
		Y: u2*u*b.P0.Y + 3*u2*t*b.C1.Y + 3*u*t2*b.C2.Y + t2*t*b.P1.Y,
	}
}

// Tangent returns the (unnormalized) derivative of the curve at t.
func (b Bezier) Tangent(t float64) Vec2 {
	u := 1 - t
	return Vec2{
		X: 3*u*u*(b.C1.X-b.P0.X) + 6*u*t*(b.C2.X-b.C1.X) + 3*t*t*(b.P1.X-b.C2.X),
		Y: 3*u*u*(b.C1.Y-b.P0.Y) + 6*u*t*(b.C2.Y-b.C1.Y) + 3*t*t*(b.P1.Y-b.C2.Y),
	}
}

// Sample appends segs+1 evenly spaced (in t) points of the curve to buf.
func (b Bezier) Sample(segs int, buf []Vec2) []Vec2 {
	if segs <= 0 {
		segs = DefaultCurveSamples
	}
	for i := 0; i <= segs; i++ {
		buf = append(buf, b.Point(float64(i)/float64(segs)))
	}
	return buf
}

// Transform maps every control point through m.
func (b Bezier) Transform(m [6]float64) Bezier {
	return Bezier{transformVec(m, b.P0), transformVec(m, b.C1), transformVec(m, b.C2), transformVec(m, b.P1)}
}

// ConnectorPath builds the curve between nodes a and b. When reverse is true
// both control points are pushed sideways by offset so that a pair of
// opposite connections render as two separate curves.
func ConnectorPath(a, b *Node, reverse bool, offset float64) Bezier {
	ca, cb := a.Center(), b.Center()
	start := BoundaryPoint(a, cb)
	end := BoundaryPoint(b, ca)

	half := start.dist(end) / 2
	c1 := start.add(exitDirection(a, start).vec().scale(half))
	c2 := end.add(exitDirection(b, end).vec().scale(half))

	if reverse {
		shift := cb.sub(ca).normalized().perp().scale(offset)
		c1 = c1.add(shift)
		c2 = c2.add(shift)
	}
	return Bezier{P0: start, C1: c1, C2: c2, P1: end}
}

// HitCurve samples the curve at the given number of steps and reports whether
// any sample lies within threshold of p.
func HitCurve(b Bezier, p Vec2, threshold float64, samples int) bool {
	if samples <= 0 {
		samples = DefaultCurveSamples
	}
	t2 := threshold * threshold
	for i := 0; i <= samples; i++ {
		q := b.Point(float64(i) / float64(samples))
		dx, dy := q.X-p.X, q.Y-p.Y
		if dx*dx+dy*dy <= t2 {
			return true
		}
	}
	return false
}

// DistanceToPolyline returns the shortest distance from p to the polyline.
// A single point degenerates to point distance; an empty polyline is
// infinitely far away.
func DistanceToPolyline(pts []Vec2, p Vec2) float64 {
	switch len(pts) {
	case 0:
		return math.Inf(1)
	case 1:
		return pts[0].dist(p)
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		if d := distanceToSegment(p, pts[i-1], pts[i]); d < best {
			best = d
		}
	}
	return best
}

func distanceToSegment(p, a, b Vec2) float64 {
	ab := b.sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 < 1e-12 {
		return p.dist(a)
	}
	t := clamp(((p.X-a.X)*ab.X+(p.Y-a.Y)*ab.Y)/l2, 0, 1)
	return p.dist(a.add(ab.scale(t)))
}

// boundsOfPoints returns the AABB of a point list.
func boundsOfPoints(pts []Vec2) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// snap rounds v to the nearest multiple of pitch. A non-positive pitch
// disables snapping.
func snap(v, pitch float64) float64 {
	if pitch <= 0 {
		return v
	}
	return math.Round(v/pitch) * pitch
}
