package service

import (
	"image"
)

// moore lists the 8 neighbours clockwise (y grows downward), starting east.
var moore = [8]image.Point{
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
}

// BorderFollower traces the outer boundary of every 8-connected foreground
// component that is not nested inside a hole of another component. Points are
// compressed the way OpenCV's CHAIN_APPROX_SIMPLE does, so area and perimeter
// match ContourArea and ArcLength on the same mask.
type BorderFollower struct{}

// FindExternal returns one contour per external component in raster order.
func (BorderFollower) FindExternal(mask *BinaryMask) ([]Contour, error) {
	if mask == nil || mask.Width == 0 || mask.Height == 0 {
		return nil, nil
	}

	w := mask.Width
	outside := outerBackground(mask)
	seen := make([]bool, len(mask.Pix))
	contours := make([]Contour, 0)

	for y := 0; y < mask.Height; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if mask.Pix[i] == 0 || seen[i] {
				continue
			}
			markComponent(mask, seen, x, y)

			// (x, y) is the top-left pixel of its component, so the pixel
			// above it is background; if that background is enclosed the
			// component sits inside another one's hole.
			if y > 0 && !outside[(y-1)*w+x] {
				continue
			}

			pts := compressChain(traceBorder(mask, image.Pt(x, y)))
			contours = append(contours, Contour{
				Points:      pts,
				AreaPx:      polygonArea(pts),
				PerimeterPx: closedLength(pts),
			})
		}
	}

	return contours, nil
}

// outerBackground flags background pixels 4-connected to the image border.
func outerBackground(mask *BinaryMask) []bool {
	w, h := mask.Width, mask.Height
	outside := make([]bool, w*h)
	stack := make([]image.Point, 0, 2*(w+h))

	push := func(x, y int) {
		if x < 0 || y < 0 || x >= w || y >= h {
			return
		}
		i := y*w + x
		if outside[i] || mask.Pix[i] != 0 {
			return
		}
		outside[i] = true
		stack = append(stack, image.Pt(x, y))
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		push(p.X+1, p.Y)
		push(p.X-1, p.Y)
		push(p.X, p.Y+1)
		push(p.X, p.Y-1)
	}
	return outside
}

// markComponent flood-fills the 8-connected component containing (x, y).
func markComponent(mask *BinaryMask, seen []bool, startX, startY int) {
	w := mask.Width
	stack := []image.Point{{X: startX, Y: startY}}
	seen[startY*w+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, d := range moore {
			q := p.Add(d)
			if !mask.Foreground(q.X, q.Y) {
				continue
			}
			i := q.Y*w + q.X
			if seen[i] {
				continue
			}
			seen[i] = true
			stack = append(stack, q)
		}
	}
}

// traceBorder runs Moore-neighbour tracing from the top-left pixel s of a
// component and stops once s would be left in the same direction again.
func traceBorder(mask *BinaryMask, s image.Point) []image.Point {
	pts := []image.Point{s}
	p := s
	from := 4 // west of s is background
	first := -1
	limit := 4*mask.Width*mask.Height + 8

	for step := 0; step < limit; step++ {
		d := -1
		for i := 1; i <= 8; i++ {
			c := (from + i) % 8
			q := p.Add(moore[c])
			if mask.Foreground(q.X, q.Y) {
				d = c
				break
			}
		}
		if d < 0 {
			break // isolated pixel
		}

		if first < 0 {
			first = d
		} else if p == s && d == first {
			pts = pts[:len(pts)-1]
			break
		}

		p = p.Add(moore[d])
		// the last background neighbour examined, seen from the new pixel
		from = (d + 6 - d%2) % 8
		pts = append(pts, p)
	}
	return pts
}

// compressChain drops points whose incoming and outgoing steps are equal.
func compressChain(pts []image.Point) []image.Point {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]image.Point, 0, n)
	for i := range pts {
		prev := pts[(i-1+n)%n]
		next := pts[(i+1)%n]
		if pts[i].Sub(prev) != next.Sub(pts[i]) {
			out = append(out, pts[i])
		}
	}
	return out
}
