package sketchboard

// The viewport maps document space to screen space with a uniform scale
// and a translation. Matrices use the [a, b, c, d, tx, ty] layout:
//
//	| a  c  tx |
//	| b  d  ty |

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// viewTransform builds the document-to-screen matrix screen = doc*scale + pan.
func viewTransform(panX, panY, scale float64) [6]float64 {
	return [6]float64{scale, 0, 0, scale, panX, panY}
}

// invertAffine returns the inverse of m, or the identity when m is
// singular.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	a, b := m[3]/det, -m[1]/det
	c, d := -m[2]/det, m[0]/det
	return [6]float64{a, b, c, d, -(a*m[4] + c*m[5]), -(b*m[4] + d*m[5])}
}

func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func transformVec(m [6]float64, v Vec2) Vec2 {
	x, y := transformPoint(m, v.X, v.Y)
	return Vec2{x, y}
}

// transformRect maps r through m and returns the normalized rectangle
// spanned by the mapped corners. Exact for the axis-aligned matrices the
// viewport produces.
func transformRect(m [6]float64, r Rect) Rect {
	return rectFromPoints(
		transformVec(m, Vec2{r.X, r.Y}),
		transformVec(m, Vec2{r.X + r.Width, r.Y + r.Height}),
	)
}
