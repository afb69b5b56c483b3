package lantern

import "math"

// clipEpsilon absorbs rounding when testing points against clip edges.
const clipEpsilon = 1e-9

func cross(ax, ay, bx, by float64) float64 {
	return ax*by - ay*bx
}

// signedArea returns twice the signed area of a polygon. Positive means the
// vertices wind clockwise in a Y-down coordinate system.
func signedArea(poly []Vec2) float64 {
	var a float64
	for i := range poly {
		p := poly[i]
		q := poly[(i+1)%len(poly)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a
}

// clipConvex clips subject against the convex polygon clip using
// Sutherland-Hodgman and appends the result to dst. Either winding order is
// accepted for clip. The result has fewer than three vertices when the
// polygons do not overlap.
func clipConvex(dst, subject, clip []Vec2) []Vec2 {
	orient := signedArea(clip)
	if math.Abs(orient) < clipEpsilon || len(subject) < 3 {
		return dst[:0]
	}
	sign := 1.0
	if orient < 0 {
		sign = -1
	}

	in := append(make([]Vec2, 0, len(subject)+len(clip)), subject...)
	out := make([]Vec2, 0, len(subject)+len(clip))
	for i := range clip {
		a := clip[i]
		b := clip[(i+1)%len(clip)]
		ex, ey := b.X-a.X, b.Y-a.Y
		out = out[:0]
		for j := range in {
			p := in[j]
			q := in[(j+1)%len(in)]
			pIn := sign*cross(ex, ey, p.X-a.X, p.Y-a.Y) >= -clipEpsilon
			qIn := sign*cross(ex, ey, q.X-a.X, q.Y-a.Y) >= -clipEpsilon
			if pIn {
				out = append(out, p)
			}
			if pIn != qIn {
				out = append(out, segmentIntersect(p, q, a, b))
			}
		}
		in, out = out, in
		if len(in) < 3 {
			return dst[:0]
		}
	}
	return append(dst[:0], in...)
}

// segmentIntersect returns the point where segment p-q crosses the line a-b.
func segmentIntersect(p, q, a, b Vec2) Vec2 {
	ex, ey := b.X-a.X, b.Y-a.Y
	dx, dy := q.X-p.X, q.Y-p.Y
	denom := cross(dx, dy, ex, ey)
	if denom == 0 {
		return p
	}
	t := cross(a.X-p.X, a.Y-p.Y, ex, ey) / denom
	return Vec2{p.X + t*dx, p.Y + t*dy}
}

// insideConvex reports whether p lies inside (or on) the convex polygon.
func insideConvex(p Vec2, poly []Vec2) bool {
	orient := signedArea(poly)
	if orient == 0 {
		return false
	}
	sign := 1.0
	if orient < 0 {
		sign = -1
	}
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		if sign*cross(b.X-a.X, b.Y-a.Y, p.X-a.X, p.Y-a.Y) < -clipEpsilon {
			return false
		}
	}
	return true
}

// quadInside reports whether all four corners lie inside the region.
func quadInside(q *[4]Vec2, region *clipRegion) bool {
	if region.poly == nil {
		r := region.rect
		for _, c := range q {
			if c.X < r.X || c.X > r.Right() || c.Y < r.Y || c.Y > r.Bottom() {
				return false
			}
		}
		return true
	}
	for _, c := range q {
		if !insideConvex(c, region.poly) {
			return false
		}
	}
	return true
}

// regionPolygon returns the region as a polygon.
func regionPolygon(region *clipRegion) []Vec2 {
	if region.poly != nil {
		return region.poly
	}
	r := region.rect
	return []Vec2{{r.X, r.Y}, {r.Right(), r.Y}, {r.Right(), r.Bottom()}, {r.X, r.Bottom()}}
}

// inverseBilinear maps p back to the (s, t) parameters of the bilinear patch
// spanned by q in TL, TR, BR, BL order. For a parallelogram the mapping is
// linear; otherwise the quadratic is solved and the root inside [0,1] is
// preferred.
func inverseBilinear(p Vec2, q *[4]Vec2) (s, t float64) {
	ex, ey := q[1].X-q[0].X, q[1].Y-q[0].Y
	fx, fy := q[3].X-q[0].X, q[3].Y-q[0].Y
	gx, gy := q[0].X-q[1].X+q[2].X-q[3].X, q[0].Y-q[1].Y+q[2].Y-q[3].Y
	hx, hy := p.X-q[0].X, p.Y-q[0].Y

	k2 := cross(gx, gy, fx, fy)
	k1 := cross(ex, ey, fx, fy) + cross(hx, hy, gx, gy)
	k0 := cross(hx, hy, ex, ey)

	solveS := func(t float64) float64 {
		dx := ex + gx*t
		dy := ey + gy*t
		if math.Abs(dx) >= math.Abs(dy) {
			if dx == 0 {
				return 0
			}
			return (hx - fx*t) / dx
		}
		return (hy - fy*t) / dy
	}

	if math.Abs(k2) < 1e-12 {
		if k1 == 0 {
			return 0, 0
		}
		t = -k0 / k1
		return solveS(t), t
	}

	disc := k1*k1 - 4*k0*k2
	if disc < 0 {
		disc = 0
	}
	disc = math.Sqrt(disc)
	ik2 := 0.5 / k2
	t = (-k1 - disc) * ik2
	s = solveS(t)
	if s < -clipEpsilon || s > 1+clipEpsilon || t < -clipEpsilon || t > 1+clipEpsilon {
		t2 := (-k1 + disc) * ik2
		s2 := solveS(t2)
		if s2 >= -clipEpsilon && s2 <= 1+clipEpsilon && t2 >= -clipEpsilon && t2 <= 1+clipEpsilon {
			return s2, t2
		}
	}
	return s, t
}
