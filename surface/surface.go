// Package surface is the drawing-surface collaborator mode code paints on:
// a set_mode contract that hands out surfaces and a small pygame-style
// drawing vocabulary bound into the interpreter.
package surface

import (
	"container/list"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/caffeineduck/eyesy/interp"
)

// ScreenID identifies the surface returned by set_mode.
const ScreenID = "main_screen"

// DefaultSurfaceLimit is how many off-screen surfaces a Layer keeps alive.
const DefaultSurfaceLimit = 16

var (
	ErrInvalidSize = errors.New("invalid surface size")
	ErrNoSurface   = errors.New("surface factory returned no surface")
)

// Surface is an addressable 2D render target.
type Surface interface {
	ID() string
	Size() (width, height int)
	Fill(c color.RGBA)
	Circle(center image.Point, radius, width int, c color.RGBA)
	Line(from, to image.Point, width int, c color.RGBA)
	Rect(r image.Rectangle, width int, c color.RGBA)
	Ellipse(r image.Rectangle, width int, c color.RGBA)
	Polygon(points []image.Point, width int, c color.RGBA)
	Blit(src Surface, at image.Point)
	Image() *image.RGBA
}

// Factory creates a surface. Returning nil signals that no usable surface
// is available.
type Factory func(id string, width, height int) Surface

// RasterFactory creates in-memory Rasters.
func RasterFactory(id string, width, height int) Surface {
	return NewRaster(id, width, height)
}

// Layer tracks the surfaces handed to mode code and builds the bindings
// that let scripts draw on them.
//
// Off-screen surfaces are held in a pool of at most limit entries. When a
// new one would exceed it, the least recently used is dropped; drawing on
// a dropped surface fails with "not found". Surfaces also belong to the
// generation current when they were made, see Begin.
type Layer struct {
	factory Factory
	limit   int

	mu       sync.Mutex
	screen   Surface
	surfaces map[string]*entry
	lru      *list.List
	seq      int
	gen      uint64
}

type entry struct {
	surface Surface
	gen     uint64
	elem    *list.Element
}

// Option configures a Layer.
type Option func(*Layer)

// WithFactory replaces the raster factory.
func WithFactory(f Factory) Option {
	return func(l *Layer) {
		l.factory = f
	}
}

// WithSurfaceLimit caps the number of off-screen surfaces kept alive.
func WithSurfaceLimit(n int) Option {
	return func(l *Layer) {
		l.limit = n
	}
}

func NewLayer(opts ...Option) *Layer {
	l := &Layer{
		factory:  RasterFactory,
		limit:    DefaultSurfaceLimit,
		surfaces: make(map[string]*entry),
		lru:      list.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.limit < 1 {
		l.limit = 1
	}
	return l
}

// SetMode returns the screen surface for the given size. A screen of the
// same size is reused so its pixels survive re-creation of the binding.
func (l *Layer) SetMode(width, height int) (Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.screen != nil {
		if w, h := l.screen.Size(); w == width && h == height {
			return l.screen, nil
		}
	}
	s := l.factory(ScreenID, width, height)
	if s == nil {
		return nil, ErrNoSurface
	}
	l.screen = s
	return s, nil
}

// Screen returns the current screen surface, or nil before SetMode.
func (l *Layer) Screen() Surface {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.screen
}

// Lookup returns the surface registered under id and marks it as recently
// used.
func (l *Layer) Lookup(id string) (Surface, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id == ScreenID {
		return l.screen, l.screen != nil
	}
	e, ok := l.surfaces[id]
	if !ok {
		return nil, false
	}
	l.lru.MoveToBack(e.elem)
	return e.surface, true
}

// Surfaces returns the number of off-screen surfaces currently held.
func (l *Layer) Surfaces() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.surfaces)
}

// Begin starts a new generation for surfaces made by a mode being loaded
// and returns the previous one. Follow it with Commit once the mode is in
// place or Abort(prev) if it failed.
func (l *Layer) Begin() (prev uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev = l.gen
	l.gen++
	return prev
}

// Commit drops every off-screen surface older than the current generation.
func (l *Layer) Commit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropWhere(func(e *entry) bool { return e.gen != l.gen })
}

// Abort drops the surfaces of the current generation and makes prev
// current again.
func (l *Layer) Abort(prev uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropWhere(func(e *entry) bool { return e.gen == l.gen })
	l.gen = prev
}

func (l *Layer) dropWhere(match func(*entry) bool) {
	for id, e := range l.surfaces {
		if match(e) {
			l.lru.Remove(e.elem)
			delete(l.surfaces, id)
		}
	}
}

// NewSurface creates an off-screen surface.
func (l *Layer) NewSurface(width, height int) (Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	id := fmt.Sprintf("surface_%d", l.seq)
	s := l.factory(id, width, height)
	if s == nil {
		return nil, ErrNoSurface
	}
	for len(l.surfaces) >= l.limit {
		oldest := l.lru.Remove(l.lru.Front()).(string)
		delete(l.surfaces, oldest)
	}
	l.surfaces[id] = &entry{surface: s, gen: l.gen, elem: l.lru.PushBack(id)}
	return s, nil
}

// resolve maps a script-side surface value back to its Surface by _id.
// Values without an _id fall back to the screen.
func (l *Layer) resolve(v any) (Surface, error) {
	var id string
	switch x := v.(type) {
	case interp.Object:
		id, _ = x["_id"].(string)
	case map[string]any:
		id, _ = x["_id"].(string)
	case nil:
		return nil, errors.New("surface is None")
	}
	if id == "" {
		id = ScreenID
	}
	s, ok := l.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("surface %q not found", id)
	}
	return s, nil
}
