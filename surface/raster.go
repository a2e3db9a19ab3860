package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"
	"sync"
)

// Raster is an in-memory Surface backed by an RGBA image.
type Raster struct {
	id string

	mu  sync.Mutex
	img *image.RGBA
}

// NewRaster returns a black, opaque raster.
func NewRaster(id string, width, height int) *Raster {
	r := &Raster{id: id, img: image.NewRGBA(image.Rect(0, 0, width, height))}
	r.Fill(color.RGBA{A: 255})
	return r
}

func (r *Raster) ID() string { return r.id }

func (r *Raster) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

func (r *Raster) Fill(c color.RGBA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draw.Draw(r.img, r.img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// Image returns a copy of the current pixels.
func (r *Raster) Image() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := image.NewRGBA(r.img.Bounds())
	copy(out.Pix, r.img.Pix)
	return out
}

func (r *Raster) Blit(src Surface, at image.Point) {
	img := src.Image()
	r.mu.Lock()
	defer r.mu.Unlock()
	dst := img.Bounds().Add(at)
	draw.Draw(r.img, dst, img, img.Bounds().Min, draw.Over)
}

func (r *Raster) set(x, y int, c color.RGBA) {
	if image.Pt(x, y).In(r.img.Rect) {
		r.img.SetRGBA(x, y, c)
	}
}

func (r *Raster) span(x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		r.set(x, y, c)
	}
}

// Circle draws a disc when width is 0, otherwise a ring width pixels thick.
func (r *Raster) Circle(center image.Point, radius, width int, c color.RGBA) {
	if radius < 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	outer := radius * radius
	inner := -1
	if width > 0 && width < radius {
		in := radius - width
		inner = in * in
	}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d := dx*dx + dy*dy
			if d <= outer && d > inner {
				r.set(center.X+dx, center.Y+dy, c)
			}
		}
	}
}

// Line draws a straight line; widths above 1 are stamped as squares.
func (r *Raster) Line(from, to image.Point, width int, c color.RGBA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.line(from, to, width, c)
}

func (r *Raster) line(from, to image.Point, width int, c color.RGBA) {
	half := max(width, 1) / 2
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}

	x, y := from.X, from.Y
	e := dx + dy
	for {
		for oy := -half; oy <= half; oy++ {
			r.span(x-half, x+half, y+oy, c)
		}
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// Rect fills rect when width is 0, otherwise draws a border width pixels
// thick inside it.
func (r *Raster) Rect(rect image.Rectangle, width int, c color.RGBA) {
	rect = rect.Canon()
	r.mu.Lock()
	defer r.mu.Unlock()

	if width <= 0 || 2*width >= min(rect.Dx(), rect.Dy()) {
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			r.span(rect.Min.X, rect.Max.X-1, y, c)
		}
		return
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		if y < rect.Min.Y+width || y >= rect.Max.Y-width {
			r.span(rect.Min.X, rect.Max.X-1, y, c)
			continue
		}
		r.span(rect.Min.X, rect.Min.X+width-1, y, c)
		r.span(rect.Max.X-width, rect.Max.X-1, y, c)
	}
}

// Ellipse draws the ellipse inscribed in rect, filled when width is 0.
func (r *Raster) Ellipse(rect image.Rectangle, width int, c color.RGBA) {
	rect = rect.Canon()
	rx, ry := float64(rect.Dx())/2, float64(rect.Dy())/2
	if rx <= 0 || ry <= 0 {
		return
	}
	cx, cy := float64(rect.Min.X)+rx, float64(rect.Min.Y)+ry
	irx, iry := rx-float64(width), ry-float64(width)
	hollow := width > 0 && irx > 0 && iry > 0

	r.mu.Lock()
	defer r.mu.Unlock()
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			px, py := float64(x)+0.5-cx, float64(y)+0.5-cy
			if px*px/(rx*rx)+py*py/(ry*ry) > 1 {
				continue
			}
			if hollow && px*px/(irx*irx)+py*py/(iry*iry) < 1 {
				continue
			}
			r.set(x, y, c)
		}
	}
}

// Polygon fills the polygon with the even-odd rule when width is 0,
// otherwise strokes its closed outline.
func (r *Raster) Polygon(points []image.Point, width int, c color.RGBA) {
	if len(points) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if width > 0 || len(points) < 3 {
		for i := range points {
			r.line(points[i], points[(i+1)%len(points)], max(width, 1), c)
		}
		return
	}

	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	var xs []float64
	for y := minY; y <= maxY; y++ {
		xs = xs[:0]
		sy := float64(y) + 0.5
		for i := range points {
			a, b := points[i], points[(i+1)%len(points)]
			ay, by := float64(a.Y), float64(b.Y)
			if (ay <= sy) == (by <= sy) {
				continue
			}
			t := (sy - ay) / (by - ay)
			xs = append(xs, float64(a.X)+t*float64(b.X-a.X))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			r.span(int(math.Ceil(xs[i]-0.5)), int(math.Floor(xs[i+1]-0.5)), y, c)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
