package surface

import (
	"fmt"
	"image"
	"image/color"

	"github.com/caffeineduck/eyesy/interp"
)

// Globals installed by Install.
const (
	SetModeGlobal = "set_mode"
	PygameGlobal  = "pygame"
)

// Install binds set_mode and the pygame drawing module into s. It is a
// no-op when both are already bound.
func (l *Layer) Install(s *interp.Session) error {
	if s.Has(SetModeGlobal) && s.Has(PygameGlobal) {
		return nil
	}
	if err := s.SetGlobal(SetModeGlobal, interp.Func(l.setMode)); err != nil {
		return err
	}
	return s.SetGlobal(PygameGlobal, l.module())
}

// Expose renders s as the object mode code receives.
func (l *Layer) Expose(s Surface) interp.Object {
	w, h := s.Size()
	return interp.Object{
		"_id":    s.ID(),
		"width":  w,
		"height": h,
		"get_width": interp.Func(func(...any) (any, error) {
			return w, nil
		}),
		"get_height": interp.Func(func(...any) (any, error) {
			return h, nil
		}),
		"get_size": interp.Func(func(...any) (any, error) {
			return []any{w, h}, nil
		}),
		"fill": interp.Func(func(args ...any) (any, error) {
			c, err := colorArg(arg(args, 0))
			if err != nil {
				return nil, fmt.Errorf("fill: %w", err)
			}
			l.Lookup(s.ID())
			s.Fill(c)
			return nil, nil
		}),
		"blit": interp.Func(func(args ...any) (any, error) {
			src, err := l.resolve(arg(args, 0))
			if err != nil {
				return nil, fmt.Errorf("blit: %w", err)
			}
			at, err := pointArg(arg(args, 1))
			if err != nil {
				return nil, fmt.Errorf("blit: %w", err)
			}
			l.Lookup(s.ID())
			s.Blit(src, at)
			return nil, nil
		}),
	}
}

func (l *Layer) setMode(args ...any) (any, error) {
	w, h, err := sizeArg(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("set_mode: %w", err)
	}
	s, err := l.SetMode(w, h)
	if err != nil {
		return nil, fmt.Errorf("set_mode: %w", err)
	}
	return l.Expose(s), nil
}

func (l *Layer) module() interp.Object {
	return interp.Object{
		"draw": interp.Object{
			"circle":  interp.Func(l.drawCircle),
			"line":    interp.Func(l.drawLine),
			"rect":    interp.Func(l.drawRect),
			"ellipse": interp.Func(l.drawEllipse),
			"polygon": interp.Func(l.drawPolygon),
		},
		"Surface": interp.Func(func(args ...any) (any, error) {
			w, h, err := sizeArg(arg(args, 0))
			if err != nil {
				return nil, fmt.Errorf("Surface: %w", err)
			}
			s, err := l.NewSurface(w, h)
			if err != nil {
				return nil, err
			}
			return l.Expose(s), nil
		}),
		"Color": interp.Func(func(args ...any) (any, error) {
			out := make([]any, 0, 4)
			for i, a := range args {
				n, err := interp.ToInt(a)
				if err != nil {
					return nil, fmt.Errorf("Color: component %d: %w", i, err)
				}
				out = append(out, n)
			}
			if len(out) == 4 && out[3] == 255 {
				out = out[:3]
			}
			return out, nil
		}),
	}
}

// drawCall is the common prefix of every pygame.draw function:
// (surface, color, ...).
func (l *Layer) drawCall(name string, args []any) (Surface, color.RGBA, error) {
	s, err := l.resolve(arg(args, 0))
	if err != nil {
		return nil, color.RGBA{}, fmt.Errorf("%s: %w", name, err)
	}
	c, err := colorArg(arg(args, 1))
	if err != nil {
		return nil, color.RGBA{}, fmt.Errorf("%s: %w", name, err)
	}
	return s, c, nil
}

// circle(surface, color, center, radius, width=0)
func (l *Layer) drawCircle(args ...any) (any, error) {
	s, c, err := l.drawCall("circle", args)
	if err != nil {
		return nil, err
	}
	center, err := pointArg(arg(args, 2))
	if err != nil {
		return nil, fmt.Errorf("circle: center: %w", err)
	}
	radius, err := interp.ToInt(arg(args, 3))
	if err != nil {
		return nil, fmt.Errorf("circle: radius: %w", err)
	}
	width, err := optInt(args, 4, 0)
	if err != nil {
		return nil, fmt.Errorf("circle: width: %w", err)
	}
	s.Circle(center, radius, width, c)
	return nil, nil
}

// line(surface, color, start, end, width=1)
func (l *Layer) drawLine(args ...any) (any, error) {
	s, c, err := l.drawCall("line", args)
	if err != nil {
		return nil, err
	}
	from, err := pointArg(arg(args, 2))
	if err != nil {
		return nil, fmt.Errorf("line: start: %w", err)
	}
	to, err := pointArg(arg(args, 3))
	if err != nil {
		return nil, fmt.Errorf("line: end: %w", err)
	}
	width, err := optInt(args, 4, 1)
	if err != nil {
		return nil, fmt.Errorf("line: width: %w", err)
	}
	s.Line(from, to, width, c)
	return nil, nil
}

// rect(surface, color, (x, y, w, h), width=0)
func (l *Layer) drawRect(args ...any) (any, error) {
	s, c, err := l.drawCall("rect", args)
	if err != nil {
		return nil, err
	}
	r, err := rectArg(arg(args, 2))
	if err != nil {
		return nil, fmt.Errorf("rect: %w", err)
	}
	width, err := optInt(args, 3, 0)
	if err != nil {
		return nil, fmt.Errorf("rect: width: %w", err)
	}
	s.Rect(r, width, c)
	return nil, nil
}

// ellipse(surface, color, (x, y, w, h), width=0)
func (l *Layer) drawEllipse(args ...any) (any, error) {
	s, c, err := l.drawCall("ellipse", args)
	if err != nil {
		return nil, err
	}
	r, err := rectArg(arg(args, 2))
	if err != nil {
		return nil, fmt.Errorf("ellipse: %w", err)
	}
	width, err := optInt(args, 3, 0)
	if err != nil {
		return nil, fmt.Errorf("ellipse: width: %w", err)
	}
	s.Ellipse(r, width, c)
	return nil, nil
}

// polygon(surface, color, points, width=0)
func (l *Layer) drawPolygon(args ...any) (any, error) {
	s, c, err := l.drawCall("polygon", args)
	if err != nil {
		return nil, err
	}
	raw, err := interp.ToSlice(arg(args, 2))
	if err != nil {
		return nil, fmt.Errorf("polygon: points: %w", err)
	}
	points := make([]image.Point, len(raw))
	for i, p := range raw {
		if points[i], err = pointArg(p); err != nil {
			return nil, fmt.Errorf("polygon: point %d: %w", i, err)
		}
	}
	width, err := optInt(args, 3, 0)
	if err != nil {
		return nil, fmt.Errorf("polygon: width: %w", err)
	}
	s.Polygon(points, width, c)
	return nil, nil
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func optInt(args []any, i, def int) (int, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	return interp.ToInt(args[i])
}

func ints(v any, n int) ([]int, error) {
	items, err := interp.ToSlice(v)
	if err != nil {
		return nil, err
	}
	if len(items) < n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(items))
	}
	out := make([]int, n)
	for i := range out {
		if out[i], err = interp.ToInt(items[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func pointArg(v any) (image.Point, error) {
	xy, err := ints(v, 2)
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(xy[0], xy[1]), nil
}

func sizeArg(v any) (int, int, error) {
	wh, err := ints(v, 2)
	if err != nil {
		return 0, 0, err
	}
	return wh[0], wh[1], nil
}

func rectArg(v any) (image.Rectangle, error) {
	r, err := ints(v, 4)
	if err != nil {
		return image.Rectangle{}, err
	}
	return image.Rect(r[0], r[1], r[0]+r[2], r[1]+r[3]), nil
}

// colorArg accepts (r, g, b), (r, g, b, a) or a single gray level. Alpha
// is ignored; the screen has no alpha channel.
func colorArg(v any) (color.RGBA, error) {
	if _, err := interp.ToFloat(v); err == nil {
		g, _ := interp.ToInt(v)
		c := clampByte(g)
		return color.RGBA{R: c, G: c, B: c, A: 255}, nil
	}
	items, err := interp.ToSlice(v)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color: %w", err)
	}
	if len(items) < 3 {
		return color.RGBA{}, fmt.Errorf("color: expected 3 or 4 components, got %d", len(items))
	}
	var rgb [3]uint8
	for i := range rgb {
		n, err := interp.ToInt(items[i])
		if err != nil {
			return color.RGBA{}, fmt.Errorf("color: %w", err)
		}
		rgb[i] = clampByte(n)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

func clampByte(n int) uint8 {
	return uint8(min(max(n, 0), 255))
}
